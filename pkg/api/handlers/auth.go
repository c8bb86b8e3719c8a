package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/identd/mongoauth/pkg/api/auth"
	"github.com/identd/mongoauth/pkg/api/middleware"
	"github.com/identd/mongoauth/pkg/identity"
)

// AuthHandler handles authentication-related API endpoints.
type AuthHandler struct {
	authenticator *identity.Authenticator
	jwtService    *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authenticator *identity.Authenticator, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtService:    jwtService,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         PrincipalResponse `json:"user"`
}

// PrincipalResponse is the API representation of an authenticated
// principal.
type PrincipalResponse struct {
	Username   string            `json:"username"`
	Groups     []string          `json:"groups,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/v1/auth/login.
// Authenticates user credentials and returns a JWT token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" {
		BadRequest(w, "Username is required")
		return
	}

	principal, err := h.authenticator.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			Unauthorized(w, "Invalid username or password")
			return
		}
		if errors.Is(err, identity.ErrInvalidArgument) {
			BadRequest(w, "Invalid credentials")
			return
		}
		InternalServerError(w, "Authentication failed")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(principal)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		User:         principalToResponse(principal),
	})
}

// Refresh handles POST /api/v1/auth/refresh.
// Returns a new token pair using a valid refresh token. Group
// memberships are re-resolved so revoked roles disappear from the new
// token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			Unauthorized(w, "Refresh token has expired")
			return
		}
		Unauthorized(w, "Invalid refresh token")
		return
	}

	principal, err := h.authenticator.Resolve(r.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, identity.ErrNoSuchUser) {
			Unauthorized(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to fetch user")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(principal)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		User:         principalToResponse(principal),
	})
}

// Me handles GET /api/v1/auth/me.
// Returns the current authenticated user's principal, freshly resolved.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	principal, err := h.authenticator.Resolve(r.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, identity.ErrNoSuchUser) {
			Unauthorized(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to fetch user")
		return
	}

	WriteJSONOK(w, principalToResponse(principal))
}

// principalToResponse converts a Principal for API output.
func principalToResponse(p *identity.Principal) PrincipalResponse {
	return PrincipalResponse{
		Username:   p.Name(),
		Groups:     p.Groups(),
		Properties: p.Properties(),
	}
}
