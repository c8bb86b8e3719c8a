// Package auth provides JWT authentication for the mongoauth admin API.
package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// AdminGroup is the group whose members may manage users and roles.
const AdminGroup = "admin"

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT claims for admin API authentication.
//
// Authorization is group-based: membership in AdminGroup grants access
// to the management endpoints.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the authenticated username.
	Username string `json:"username"`

	// Groups is the list of group names resolved at login time.
	Groups []string `json:"groups,omitempty"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the user belongs to the admin group.
func (c *Claims) IsAdmin() bool {
	return c.HasGroup(AdminGroup)
}

// HasGroup returns true if the user belongs to the specified group.
func (c *Claims) HasGroup(groupName string) bool {
	return slices.Contains(c.Groups, groupName)
}
