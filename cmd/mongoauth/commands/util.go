package commands

import (
	"context"
	"fmt"

	"github.com/identd/mongoauth/internal/logger"
	"github.com/identd/mongoauth/pkg/clientcache"
	"github.com/identd/mongoauth/pkg/config"
	"github.com/identd/mongoauth/pkg/identity"
	"github.com/identd/mongoauth/pkg/store"
	mongostore "github.com/identd/mongoauth/pkg/store/mongo"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// newRegistry builds the store registry with all known backends wired
// to the given client cache.
func newRegistry(cache *mongostore.ClientCache) (*store.Registry, error) {
	reg := store.NewRegistry()
	if err := reg.Register(store.DefaultImplementation, mongostore.Factory(cache)); err != nil {
		return nil, err
	}
	return reg, nil
}

// openStore opens the configured directory backend behind a fresh
// client cache. The returned cleanup closes the store and shuts the
// cache down; one-shot commands should defer it.
func openStore(ctx context.Context, cfg *config.Config) (identity.Store, func(), error) {
	cache := mongostore.NewClientCache(
		clientcache.Options{
			TTL:           cfg.Cache.TTL,
			SweepInterval: cfg.Cache.SweepInterval,
		},
		cfg.Database.ConnectTimeout,
		cfg.Database.SocketTimeout,
	)

	reg, err := newRegistry(cache)
	if err != nil {
		cache.Shutdown(ctx)
		return nil, nil, err
	}

	st, err := reg.Open(ctx, cfg.Database.Implementation, cfg.Database.StoreConfig())
	if err != nil {
		cache.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to open directory backend: %w", err)
	}

	cleanup := func() {
		_ = st.Close(context.Background())
		cache.Shutdown(context.Background())
	}
	return st, cleanup, nil
}

// openEngine opens the configured backend and wraps it in the
// administrative engine with the configured password scheme.
func openEngine(ctx context.Context, cfg *config.Config) (*identity.Engine, func(), error) {
	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	scheme, err := identity.SchemeByName(cfg.Database.PasswordScheme)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return identity.NewEngine(st, scheme), cleanup, nil
}
