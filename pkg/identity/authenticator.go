package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/identd/mongoauth/internal/logger"
	"github.com/identd/mongoauth/internal/telemetry"
)

// ErrInvalidCredentials is returned when authentication fails because
// the user does not exist or the password does not match. The two cases
// are deliberately indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator validates username/password credentials against a Store
// and resolves the caller's group memberships.
type Authenticator struct {
	store  Store
	scheme PasswordScheme
}

// NewAuthenticator creates an Authenticator backed by the given store.
// A nil scheme selects the plain constant-time comparison scheme.
func NewAuthenticator(store Store, scheme PasswordScheme) *Authenticator {
	if scheme == nil {
		scheme = PlainScheme{}
	}
	return &Authenticator{store: store, scheme: scheme}
}

// Authenticate validates the credentials and returns the resulting
// principal with its groups and configured attributes resolved.
//
// An unknown username, an empty username and a wrong password all fail
// with ErrInvalidCredentials so callers cannot probe for valid
// usernames. An empty password is accepted as a credential and compared
// like any other; it only succeeds if the stored value is also empty
// under the plain scheme.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	if username == "" {
		logger.DebugCtx(ctx, "authentication failed: empty username")
		return nil, ErrInvalidCredentials
	}

	start := time.Now()

	ctx, span := telemetry.StartAuthSpan(ctx, "login", username,
		telemetry.AuthScheme(a.scheme.Name()))
	defer span.End()

	user, err := a.store.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			logger.DebugCtx(ctx, "authentication failed: unknown user",
				logger.Username(username))
			span.SetAttributes(telemetry.AuthResult("failure"))
			return nil, ErrInvalidCredentials
		}
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	if !a.scheme.Verify(password, user.PasswordHash) {
		logger.DebugCtx(ctx, "authentication failed: password mismatch",
			logger.Username(username))
		span.SetAttributes(telemetry.AuthResult("failure"))
		return nil, ErrInvalidCredentials
	}

	groups, err := a.store.FindGroupsContainingUser(ctx, username)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		telemetry.AuthResult("success"),
		telemetry.GroupCount(len(groups)))

	logger.DebugCtx(ctx, "authentication succeeded",
		logger.Username(username),
		logger.Groups(len(groups)),
		logger.DurationMs(logger.Duration(start)))

	return NewPrincipal(username, groups, user.Properties), nil
}

// Resolve builds a principal for an already-authenticated username
// without checking credentials. Callers are responsible for having
// verified the caller's identity, for example through a refresh token.
// Returns ErrNoSuchUser if the user no longer exists.
func (a *Authenticator) Resolve(ctx context.Context, username string) (*Principal, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is empty", ErrInvalidArgument)
	}

	user, err := a.store.FindUser(ctx, username)
	if err != nil {
		return nil, err
	}

	groups, err := a.store.FindGroupsContainingUser(ctx, username)
	if err != nil {
		return nil, err
	}

	return NewPrincipal(username, groups, user.Properties), nil
}
