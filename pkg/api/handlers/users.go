package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/identd/mongoauth/pkg/identity"
)

// UserHandler handles user and role management API endpoints.
type UserHandler struct {
	engine *identity.Engine
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(engine *identity.Engine) *UserHandler {
	return &UserHandler{engine: engine}
}

// CreateUserRequest is the request body for POST /api/v1/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AddRoleRequest is the request body for POST /api/v1/users/{username}/roles.
type AddRoleRequest struct {
	Role string `json:"role"`
}

// UserListResponse is the response body for GET /api/v1/users.
type UserListResponse struct {
	Users []string `json:"users"`
}

// RoleListResponse is the response body for GET /api/v1/users/{username}/roles.
type RoleListResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Create handles POST /api/v1/users.
// Creating a user that already exists leaves its credentials untouched.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" {
		BadRequest(w, "Username is required")
		return
	}

	if err := h.engine.AddUser(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, identity.ErrInvalidArgument) {
			BadRequest(w, err.Error())
			return
		}
		InternalServerError(w, "Failed to create user")
		return
	}

	WriteJSONCreated(w, map[string]string{"username": req.Username})
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.ListUsers(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list users")
		return
	}

	WriteJSONOK(w, UserListResponse{Users: users})
}

// Delete handles DELETE /api/v1/users/{username}.
// Deleting an absent user succeeds.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := h.engine.DeleteUser(r.Context(), username); err != nil {
		if errors.Is(err, identity.ErrInvalidArgument) {
			BadRequest(w, err.Error())
			return
		}
		InternalServerError(w, "Failed to delete user")
		return
	}

	WriteNoContent(w)
}

// ListRoles handles GET /api/v1/users/{username}/roles.
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	roles, err := h.engine.ListRoles(r.Context(), username)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidArgument) {
			BadRequest(w, err.Error())
			return
		}
		InternalServerError(w, "Failed to list roles")
		return
	}

	WriteJSONOK(w, RoleListResponse{Username: username, Roles: roles})
}

// AddRole handles POST /api/v1/users/{username}/roles.
func (h *UserHandler) AddRole(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req AddRoleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.engine.AddRole(r.Context(), username, req.Role); err != nil {
		switch {
		case errors.Is(err, identity.ErrNoSuchUser):
			NotFound(w, "User not found")
		case errors.Is(err, identity.ErrInvalidArgument):
			BadRequest(w, err.Error())
		default:
			InternalServerError(w, "Failed to add role")
		}
		return
	}

	WriteJSONCreated(w, map[string]string{"username": username, "role": req.Role})
}

// DeleteRole handles DELETE /api/v1/users/{username}/roles/{role}.
// Removing a role the user does not hold succeeds.
func (h *UserHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	role := chi.URLParam(r, "role")

	if err := h.engine.DeleteRole(r.Context(), username, role); err != nil {
		switch {
		case errors.Is(err, identity.ErrNoSuchUser):
			NotFound(w, "User not found")
		case errors.Is(err, identity.ErrInvalidArgument):
			BadRequest(w, err.Error())
		default:
			InternalServerError(w, "Failed to delete role")
		}
		return
	}

	WriteNoContent(w)
}
