package identity

import (
	"context"
	"fmt"

	"github.com/identd/mongoauth/internal/logger"
)

// Engine is the administrative facade over a Store.
//
// It exposes the management operations the admin API and CLI build on:
// creating and deleting users, listing users, and managing the roles
// (group memberships) of a user. The engine hashes passwords with the
// configured scheme before they reach the store.
type Engine struct {
	store  Store
	scheme PasswordScheme
}

// NewEngine creates an Engine backed by the given store. A nil scheme
// selects the plain scheme, storing passwords verbatim.
func NewEngine(store Store, scheme PasswordScheme) *Engine {
	if scheme == nil {
		scheme = PlainScheme{}
	}
	return &Engine{store: store, scheme: scheme}
}

// AddUser creates the user if absent. Creating a user that already
// exists leaves the stored credentials untouched.
func (e *Engine) AddUser(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}

	stored, err := e.scheme.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := e.store.InsertUser(ctx, &User{Username: username, PasswordHash: stored}); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "user added",
		logger.Username(username),
		logger.Operation("add_user"))
	return nil
}

// SetPassword replaces the stored credential for the user, hashing the
// password with the configured scheme. The user is created if absent.
func (e *Engine) SetPassword(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}

	stored, err := e.scheme.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := e.store.UpdateUser(ctx, &User{Username: username, PasswordHash: stored}); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "password changed",
		logger.Username(username),
		logger.Operation("set_password"))
	return nil
}

// DeleteUser removes the user and scrubs its group memberships.
// Deleting an absent user succeeds.
func (e *Engine) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}

	if err := e.store.DeleteUser(ctx, username); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "user deleted",
		logger.Username(username),
		logger.Operation("delete_user"))
	return nil
}

// ListUsers returns the usernames of all users.
func (e *Engine) ListUsers(ctx context.Context) ([]string, error) {
	return e.store.ListUserNames(ctx)
}

// ListRoles returns the names of the groups the user belongs to.
func (e *Engine) ListRoles(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}
	return e.store.FindGroupsContainingUser(ctx, username)
}

// AddRole adds the user to the named group, creating the group if
// absent. Returns ErrNoSuchUser if the user does not exist.
func (e *Engine) AddRole(ctx context.Context, username, role string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}
	if role == "" {
		return fmt.Errorf("%w: role is empty", ErrInvalidArgument)
	}

	if err := e.store.AddUserToGroup(ctx, username, role); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "role added",
		logger.Username(username),
		logger.Group(role),
		logger.Operation("add_role"))
	return nil
}

// DeleteRole removes the user from the named group. Returns
// ErrNoSuchUser if the user does not exist; removing a role the user
// does not hold succeeds.
func (e *Engine) DeleteRole(ctx context.Context, username, role string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}
	if role == "" {
		return fmt.Errorf("%w: role is empty", ErrInvalidArgument)
	}

	if err := e.store.RemoveUserFromGroup(ctx, username, role); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "role deleted",
		logger.Username(username),
		logger.Group(role),
		logger.Operation("delete_role"))
	return nil
}
