package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// fakeStore is an in-memory Store used across the package tests.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*User
	groups map[string][]string // group name -> members

	// Error injection, applied to the matching operation when non-nil.
	findErr   error
	groupsErr error
	pingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*User),
		groups: make(map[string][]string),
	}
}

// seedUser installs a user and its memberships directly.
func (s *fakeStore) seedUser(u *User, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	for _, g := range groups {
		s.groups[g] = append(s.groups[g], u.Username)
	}
}

func (s *fakeStore) FindUser(ctx context.Context, username string) (*User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchUser, username)
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) ListUserNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeStore) FindGroupsContainingUser(ctx context.Context, username string) ([]string, error) {
	if s.groupsErr != nil {
		return nil, s.groupsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []string
	for name, members := range s.groups {
		for _, m := range members {
			if m == username {
				groups = append(groups, name)
				break
			}
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (s *fakeStore) InsertUser(ctx context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; !ok {
		copied := *user
		s.users[user.Username] = &copied
	}
	for _, g := range user.Groups {
		s.addMemberLocked(g, user.Username)
	}
	return nil
}

func (s *fakeStore) UpdateUser(ctx context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.Username] = &copied
	for _, g := range user.Groups {
		s.addMemberLocked(g, user.Username)
	}
	return nil
}

func (s *fakeStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	for g, members := range s.groups {
		kept := members[:0]
		for _, m := range members {
			if m != username {
				kept = append(kept, m)
			}
		}
		s.groups[g] = kept
	}
	return nil
}

func (s *fakeStore) AddUserToGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchUser, username)
	}
	s.addMemberLocked(group, username)
	return nil
}

func (s *fakeStore) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchUser, username)
	}
	members := s.groups[group]
	kept := members[:0]
	for _, m := range members {
		if m != username {
			kept = append(kept, m)
		}
	}
	s.groups[group] = kept
	return nil
}

func (s *fakeStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *fakeStore) Close(ctx context.Context) error {
	return nil
}

func (s *fakeStore) addMemberLocked(group, username string) {
	for _, m := range s.groups[group] {
		if m == username {
			return
		}
	}
	s.groups[group] = append(s.groups[group], username)
}
