package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineAddUser(t *testing.T) {
	st := newFakeStore()
	engine := NewEngine(st, nil)

	require.NoError(t, engine.AddUser(context.Background(), "berti", "fish"))

	user, err := st.FindUser(context.Background(), "berti")
	require.NoError(t, err)
	assert.Equal(t, "fish", user.PasswordHash)
}

func TestEngineAddUserExistingUnchanged(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "original"})

	engine := NewEngine(st, nil)
	require.NoError(t, engine.AddUser(context.Background(), "berti", "replacement"))

	user, err := st.FindUser(context.Background(), "berti")
	require.NoError(t, err)
	assert.Equal(t, "original", user.PasswordHash, "existing credentials must be preserved")
}

func TestEngineAddUserHashesPassword(t *testing.T) {
	st := newFakeStore()
	engine := NewEngine(st, BcryptScheme{Cost: bcryptTestCost})

	require.NoError(t, engine.AddUser(context.Background(), "berti", "fish"))

	user, err := st.FindUser(context.Background(), "berti")
	require.NoError(t, err)
	assert.NotEqual(t, "fish", user.PasswordHash)
	assert.True(t, BcryptScheme{}.Verify("fish", user.PasswordHash))
}

func TestEngineAddUserEmptyUsername(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil)
	err := engine.AddUser(context.Background(), "", "fish")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineSetPassword(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "old"})

	engine := NewEngine(st, nil)
	require.NoError(t, engine.SetPassword(context.Background(), "berti", "new"))

	user, err := st.FindUser(context.Background(), "berti")
	require.NoError(t, err)
	assert.Equal(t, "new", user.PasswordHash)
}

func TestEngineSetPasswordEmptyUsername(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil)
	err := engine.SetPassword(context.Background(), "", "new")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngineDeleteUser(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"}, "admin")

	engine := NewEngine(st, nil)
	require.NoError(t, engine.DeleteUser(context.Background(), "berti"))

	_, err := st.FindUser(context.Background(), "berti")
	assert.ErrorIs(t, err, ErrNoSuchUser)

	groups, err := st.FindGroupsContainingUser(context.Background(), "berti")
	require.NoError(t, err)
	assert.Empty(t, groups, "memberships must be scrubbed with the user")
}

func TestEngineDeleteAbsentUser(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil)
	assert.NoError(t, engine.DeleteUser(context.Background(), "nobody"))
}

func TestEngineListUsers(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "fred", PasswordHash: "x"})
	st.seedUser(&User{Username: "berti", PasswordHash: "y"})

	engine := NewEngine(st, nil)
	names, err := engine.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"berti", "fred"}, names)
}

func TestEngineRoles(t *testing.T) {
	st := newFakeStore()
	st.seedUser(&User{Username: "berti", PasswordHash: "fish"})

	engine := NewEngine(st, nil)
	ctx := context.Background()

	require.NoError(t, engine.AddRole(ctx, "berti", "admin"))
	require.NoError(t, engine.AddRole(ctx, "berti", "operator"))

	roles, err := engine.ListRoles(ctx, "berti")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "operator"}, roles)

	require.NoError(t, engine.DeleteRole(ctx, "berti", "admin"))

	roles, err = engine.ListRoles(ctx, "berti")
	require.NoError(t, err)
	assert.Equal(t, []string{"operator"}, roles)
}

func TestEngineAddRoleUnknownUser(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil)
	err := engine.AddRole(context.Background(), "nobody", "admin")
	assert.ErrorIs(t, err, ErrNoSuchUser)
}

func TestEngineRoleArgumentValidation(t *testing.T) {
	engine := NewEngine(newFakeStore(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, engine.AddRole(ctx, "", "admin"), ErrInvalidArgument)
	assert.ErrorIs(t, engine.AddRole(ctx, "berti", ""), ErrInvalidArgument)
	assert.ErrorIs(t, engine.DeleteRole(ctx, "", "admin"), ErrInvalidArgument)
	assert.ErrorIs(t, engine.DeleteRole(ctx, "berti", ""), ErrInvalidArgument)

	_, err := engine.ListRoles(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
