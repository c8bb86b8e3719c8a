// Package store wires identity.Store implementations to configuration.
//
// Backends register a named factory; the composition root opens the one
// selected by the database.implementation config key. The canonical
// backend is "mongo", provided by pkg/store/mongo.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/identd/mongoauth/pkg/identity"
)

// DefaultImplementation is the backend used when the configuration does
// not name one.
const DefaultImplementation = "mongo"

// ErrUnknownImplementation is returned when opening a backend name with
// no registered factory.
var ErrUnknownImplementation = errors.New("unknown store implementation")

// Config describes the backend a factory should open. It is the
// store-facing projection of the database configuration section.
type Config struct {
	// URL is the connection descriptor, a comma-separated list of
	// host or host:port pieces.
	URL string

	// Database is the database name.
	Database string

	// UserCollection and GroupCollection name the collections holding
	// user and group documents.
	UserCollection  string
	GroupCollection string

	// UserAttributes lists the additional attribute names to resolve on
	// user lookups.
	UserAttributes []string

	// ConnectTimeout bounds establishing a client; SocketTimeout bounds
	// individual operations on it.
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// Validate checks that the config names a backend to talk to.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("store config: url is required")
	}
	if c.Database == "" {
		return fmt.Errorf("store config: database name is required")
	}
	if c.UserCollection == "" {
		return fmt.Errorf("store config: user collection is required")
	}
	if c.GroupCollection == "" {
		return fmt.Errorf("store config: group collection is required")
	}
	return nil
}

// Factory opens a store for the given config.
type Factory func(ctx context.Context, cfg Config) (identity.Store, error)

// Registry maps implementation names to factories. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. Registering a name
// twice is a programming error and fails.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("store registry: empty implementation name")
	}
	if f == nil {
		return fmt.Errorf("store registry: nil factory for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("store registry: %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Open creates a store using the factory registered under name. An
// empty name selects DefaultImplementation.
func (r *Registry) Open(ctx context.Context, name string, cfg Config) (identity.Store, error) {
	if name == "" {
		name = DefaultImplementation
	}

	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			ErrUnknownImplementation, name, strings.Join(r.Names(), ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return f(ctx, cfg)
}

// Names returns the registered implementation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
