package identity

import (
	"fmt"
	"slices"
)

// User represents a user record resolved from the directory backend.
//
// A user document carries a username, a stored password value and an
// arbitrary set of additional string attributes (email, phone number and
// so on). Which attributes are resolved is controlled by configuration;
// attributes absent from a document are simply absent from Properties.
// Group membership is stored on the group documents, not here, but
// mutations carry the desired memberships in Groups so the backend can
// keep both sides of the relation consistent.
type User struct {
	// Username is the unique identifier for the user.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// PasswordHash is the stored password value. Depending on the
	// configured password scheme this is either a plaintext password or
	// a bcrypt hash.
	PasswordHash string `json:"-" yaml:"password_hash" mapstructure:"password_hash"`

	// Properties holds the additional attributes resolved for this user,
	// keyed by attribute name. Only string-valued attributes are kept.
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty" mapstructure:"properties"`

	// Groups is the list of group names this user should belong to.
	// Populated on mutation requests; lookups resolve membership from
	// the group documents instead.
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty" mapstructure:"groups"`
}

// HasGroup checks if the user record carries the given group name.
func (u *User) HasGroup(groupName string) bool {
	return slices.Contains(u.Groups, groupName)
}

// Property returns the named attribute and whether it was resolved.
func (u *User) Property(name string) (string, bool) {
	if u.Properties == nil {
		return "", false
	}
	v, ok := u.Properties[name]
	return v, ok
}

// Validate checks if the user record is well formed.
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidArgument)
	}
	for _, g := range u.Groups {
		if g == "" {
			return fmt.Errorf("%w: group name is empty", ErrInvalidArgument)
		}
	}
	return nil
}
