package identity

import (
	"context"
	"errors"
	"fmt"
)

// Prompts presented to credential callbacks during login.
const (
	UsernamePrompt = "Username: "
	PasswordPrompt = "Password: "
)

// ErrNoCallback is returned when a login is attempted without a
// credential callback installed.
var ErrNoCallback = errors.New("no credential callback available")

// CredentialCallback supplies a username and password when invoked with
// the login prompts. Implementations may read from a terminal, an RPC
// frame or a test fixture. Returning an empty password is valid; a
// password the callback cannot produce should be returned as "".
type CredentialCallback func(namePrompt, passwordPrompt string) (username, password string, err error)

// LoginModule drives the two-step credential handshake: obtain
// credentials through a callback, then authenticate them and expose the
// resulting principals.
//
// A LoginModule is single-use state for one login attempt and is not
// safe for concurrent use.
type LoginModule struct {
	auth     *Authenticator
	callback CredentialCallback

	principal *Principal
}

// NewLoginModule creates a LoginModule that obtains credentials from
// the given callback and validates them with the authenticator.
func NewLoginModule(auth *Authenticator, callback CredentialCallback) *LoginModule {
	return &LoginModule{auth: auth, callback: callback}
}

// Login runs the credential callback and authenticates the result.
// On success the authenticated principal is retained and returned by
// Subject until Logout is called.
func (m *LoginModule) Login(ctx context.Context) (*Principal, error) {
	if m.callback == nil {
		return nil, ErrNoCallback
	}

	username, password, err := m.callback(UsernamePrompt, PasswordPrompt)
	if err != nil {
		return nil, fmt.Errorf("credential callback: %w", err)
	}

	principal, err := m.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	m.principal = principal
	return principal, nil
}

// Subject returns the principal established by a successful Login, or
// nil if no login has succeeded.
func (m *LoginModule) Subject() *Principal {
	return m.principal
}

// GroupPrincipals returns one GroupPrincipal per group resolved for the
// logged-in subject.
func (m *LoginModule) GroupPrincipals() []GroupPrincipal {
	if m.principal == nil {
		return nil
	}
	groups := m.principal.Groups()
	out := make([]GroupPrincipal, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupPrincipal(g))
	}
	return out
}

// Logout discards the principal established by Login.
func (m *LoginModule) Logout() {
	m.principal = nil
}
