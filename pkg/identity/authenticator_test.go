package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateSuccess(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"}, "loginmodule", "admin")

	auth := NewAuthenticator(st, nil)

	principal, err := auth.Authenticate(context.Background(), "berti", "fish")
	require.NoError(t, err)
	require.NotNil(t, principal)

	assert.Equal(t, "berti", principal.Name())
	assert.ElementsMatch(t, []string{"loginmodule", "admin"}, principal.Groups())
}

func TestAuthenticateUnknownUser(t *testing.T) {
	st := newFakeStore()
	auth := NewAuthenticator(st, nil)

	_, err := auth.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})

	auth := NewAuthenticator(st, nil)

	_, err := auth.Authenticate(context.Background(), "berti", "chips")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// Unknown user and wrong password must be indistinguishable so the API
// cannot be used to probe for valid usernames.
func TestAuthenticateFailuresAreMerged(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})

	auth := NewAuthenticator(st, nil)

	_, unknownErr := auth.Authenticate(context.Background(), "nobody", "fish")
	_, mismatchErr := auth.Authenticate(context.Background(), "berti", "chips")

	assert.Equal(t, unknownErr, mismatchErr)
}

// An empty username fails like any other bad credential, so a caller
// cannot tell it apart from an unknown user or a wrong password.
func TestAuthenticateEmptyUsername(t *testing.T) {
	auth := NewAuthenticator(newFakeStore(), nil)

	_, err := auth.Authenticate(context.Background(), "", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
}

func TestAuthenticateEmptyPassword(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "guest", PasswordHash: ""})
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})

	auth := NewAuthenticator(st, nil)

	// An empty password is a real credential under the plain scheme.
	principal, err := auth.Authenticate(context.Background(), "guest", "")
	require.NoError(t, err)
	assert.Equal(t, "guest", principal.Name())

	_, err = auth.Authenticate(context.Background(), "berti", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateNoGroups(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "fred", PasswordHash: "pass"})

	auth := NewAuthenticator(st, nil)

	principal, err := auth.Authenticate(context.Background(), "fred", "pass")
	require.NoError(t, err)
	assert.Empty(t, principal.Groups())
}

func TestAuthenticatePropagatesBackendError(t *testing.T) {
	st := newFakeStore()
	st.findErr = fmt.Errorf("%w: connection reset", ErrBackend)

	auth := NewAuthenticator(st, nil)

	_, err := auth.Authenticate(context.Background(), "berti", "fish")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateGroupLookupError(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})
	st.groupsErr = fmt.Errorf("%w: cursor timeout", ErrBackend)

	auth := NewAuthenticator(st, nil)

	_, err := auth.Authenticate(context.Background(), "berti", "fish")
	assert.ErrorIs(t, err, ErrBackend)
}

func TestAuthenticateBcryptScheme(t *testing.T) {
	scheme := BcryptScheme{Cost: bcryptTestCost}
	hash, err := scheme.Hash("s3cret")
	require.NoError(t, err)

	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: hash}, "admin")

	auth := NewAuthenticator(st, scheme)

	principal, err := auth.Authenticate(context.Background(), "berti", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, principal.Groups())

	_, err = auth.Authenticate(context.Background(), "berti", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateResolvesProperties(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{
		Username:     "berti",
		PasswordHash: "fish",
		Properties:   map[string]string{"email": "berti@example.com"},
	})

	auth := NewAuthenticator(st, nil)

	principal, err := auth.Authenticate(context.Background(), "berti", "fish")
	require.NoError(t, err)

	email, ok := principal.Property("email")
	require.True(t, ok)
	assert.Equal(t, "berti@example.com", email)
}

func TestResolve(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"}, "admin")

	auth := NewAuthenticator(st, nil)

	principal, err := auth.Resolve(context.Background(), "berti")
	require.NoError(t, err)
	assert.Equal(t, "berti", principal.Name())
	assert.Equal(t, []string{"admin"}, principal.Groups())
}

func TestResolveUnknownUser(t *testing.T) {
	auth := NewAuthenticator(newFakeStore(), nil)

	_, err := auth.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoSuchUser)
}

func TestResolveEmptyUsername(t *testing.T) {
	auth := NewAuthenticator(newFakeStore(), nil)

	_, err := auth.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

var errSentinel = errors.New("sentinel")

func TestResolvePropagatesBackendError(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})
	st.groupsErr = errSentinel

	auth := NewAuthenticator(st, nil)

	_, err := auth.Resolve(context.Background(), "berti")
	assert.ErrorIs(t, err, errSentinel)
}
