package identity

import (
	"context"
	"errors"
)

// Common errors for Store operations.
var (
	// ErrNoSuchUser is returned when a lookup or mutation names a user
	// that does not exist in the backend.
	ErrNoSuchUser = errors.New("no such user")

	// ErrInvalidArgument is returned when a caller passes an empty or
	// malformed username, group name or record.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBackend is returned when the directory backend fails during a
	// query or mutation. The underlying driver error is wrapped.
	ErrBackend = errors.New("backend error")
)

// Store defines the interface for user and group persistence.
//
// Implementations resolve user records and group membership from a
// directory backend and keep the user/group relation consistent across
// mutations. The canonical implementation lives in pkg/store/mongo;
// alternative backends register themselves with the pkg/store registry.
//
// All methods take a context for cancellation and deadline propagation.
// Lookups that name a missing user return ErrNoSuchUser; transport and
// driver failures are wrapped in ErrBackend.
type Store interface {
	// FindUser returns the user record for the given username, with
	// PasswordHash and the configured additional attributes populated.
	// Returns ErrNoSuchUser if no document matches.
	FindUser(ctx context.Context, username string) (*User, error)

	// ListUserNames returns the usernames of all user documents.
	ListUserNames(ctx context.Context) ([]string, error)

	// FindGroupsContainingUser returns the names of all groups whose
	// member list contains the given username. A user with no
	// memberships yields an empty slice, not an error.
	FindGroupsContainingUser(ctx context.Context, username string) ([]string, error)

	// InsertUser creates the user document if absent and reconciles the
	// memberships named in user.Groups. An existing user document is
	// left untouched; group reconciliation still runs.
	InsertUser(ctx context.Context, user *User) error

	// UpdateUser replaces the stored password and attributes for the
	// user, creating the document if absent, and reconciles the
	// memberships named in user.Groups additively.
	UpdateUser(ctx context.Context, user *User) error

	// DeleteUser removes the user document and scrubs the username from
	// every group's member list. Deleting an absent user succeeds.
	DeleteUser(ctx context.Context, username string) error

	// AddUserToGroup adds the user to the named group, creating the
	// group document if absent. Returns ErrNoSuchUser if the user does
	// not exist. Adding an existing member is a no-op.
	AddUserToGroup(ctx context.Context, username, group string) error

	// RemoveUserFromGroup removes the user from the named group.
	// Returns ErrNoSuchUser if the user does not exist. Removing a
	// non-member or naming an absent group is a no-op.
	RemoveUserFromGroup(ctx context.Context, username, group string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources held by this store.
	Close(ctx context.Context) error
}
