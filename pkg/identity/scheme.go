package identity

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default cost parameter for bcrypt hashing.
// Cost 10 provides a good balance between security and performance.
const DefaultBcryptCost = 10

// MaxPasswordLength is the maximum allowed password length for the
// bcrypt scheme. bcrypt silently truncates at 72 bytes, so we enforce
// this limit when hashing.
const MaxPasswordLength = 72

// ErrPasswordTooLong is returned when a password exceeds the bcrypt
// input limit.
var ErrPasswordTooLong = errors.New("password must be at most 72 characters")

// PasswordScheme abstracts how stored password values are produced and
// verified. The plain scheme stores the password as-is and compares in
// constant time; the bcrypt scheme stores a bcrypt hash.
type PasswordScheme interface {
	// Name returns the scheme identifier used in configuration.
	Name() string

	// Hash produces the stored representation of a plaintext password.
	Hash(password string) (string, error)

	// Verify reports whether the plaintext password matches the stored
	// value.
	Verify(password, stored string) bool
}

// PlainScheme stores passwords verbatim and compares them in constant
// time. This matches directory deployments where password values are
// provisioned externally.
type PlainScheme struct{}

// Name returns "plain".
func (PlainScheme) Name() string { return "plain" }

// Hash returns the password unchanged.
func (PlainScheme) Hash(password string) (string, error) {
	return password, nil
}

// Verify compares password and stored value in constant time.
func (PlainScheme) Verify(password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

// BcryptScheme stores bcrypt hashes of passwords.
type BcryptScheme struct {
	// Cost is the bcrypt cost parameter. Zero means DefaultBcryptCost.
	Cost int
}

// Name returns "bcrypt".
func (BcryptScheme) Name() string { return "bcrypt" }

// Hash creates a bcrypt hash of the given password.
func (s BcryptScheme) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	cost := s.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks if a password matches a bcrypt hash.
func (BcryptScheme) Verify(password, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// SchemeByName returns the PasswordScheme for a configuration value.
// An empty name selects the plain scheme.
func SchemeByName(name string) (PasswordScheme, error) {
	switch name {
	case "", "plain":
		return PlainScheme{}, nil
	case "bcrypt":
		return BcryptScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
}
