package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identd/mongoauth/pkg/identity"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func newTestService(t *testing.T, cfg JWTConfig) *JWTService {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	svc, err := NewJWTService(cfg)
	require.NoError(t, err)
	return svc
}

func testPrincipal() *identity.Principal {
	return identity.NewPrincipal("berti", []string{"admin", "operator"}, nil)
}

func TestNewJWTServiceSecretTooShort(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "short"})
	assert.ErrorIs(t, err, ErrInvalidSecretLength)
}

func TestNewJWTServiceDefaults(t *testing.T) {
	svc := newTestService(t, JWTConfig{})
	assert.Equal(t, 15*time.Minute, svc.GetAccessTokenDuration())
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.ExpiresAt, 5*time.Second)
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "berti", claims.Username)
	assert.Equal(t, "berti", claims.Subject)
	assert.Equal(t, "mongoauth", claims.Issuer)
	assert.Equal(t, []string{"admin", "operator"}, claims.Groups)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID, "tokens carry a unique jti")
	assert.True(t, claims.IsAdmin())
}

func TestValidateRefreshToken(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateTokenTypeMismatch(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestService(t, JWTConfig{})
	other := newTestService(t, JWTConfig{Secret: "another-secret-key-also-32-chars-xx"})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService(t, JWTConfig{AccessTokenDuration: -time.Minute})

	pair, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokensCarryUniqueIDs(t *testing.T) {
	svc := newTestService(t, JWTConfig{})

	first, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)
	second, err := svc.GenerateTokenPair(testPrincipal())
	require.NoError(t, err)

	a, err := svc.ValidateAccessToken(first.AccessToken)
	require.NoError(t, err)
	b, err := svc.ValidateAccessToken(second.AccessToken)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestClaimsGroupChecks(t *testing.T) {
	claims := &Claims{Username: "berti", Groups: []string{"operator"}}

	assert.True(t, claims.HasGroup("operator"))
	assert.False(t, claims.HasGroup("admin"))
	assert.False(t, claims.IsAdmin())

	claims.Groups = append(claims.Groups, AdminGroup)
	assert.True(t, claims.IsAdmin())
}
