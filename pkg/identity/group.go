package identity

import (
	"fmt"
	"slices"
)

// Group represents a group document in the directory backend.
//
// Groups own the membership relation: each group document carries the
// list of usernames that belong to it. A user's roles are resolved by
// scanning for the groups whose member list contains the username.
type Group struct {
	// Name is the unique identifier for the group.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Members is the list of usernames belonging to this group.
	Members []string `json:"members,omitempty" yaml:"members,omitempty" mapstructure:"members"`
}

// HasMember checks if the group contains the given username.
func (g *Group) HasMember(username string) bool {
	return slices.Contains(g.Members, username)
}

// Validate checks if the group record is well formed.
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", ErrInvalidArgument)
	}
	return nil
}
