package config

import (
	"strings"
	"time"

	"github.com/identd/mongoauth/internal/logger"
	"github.com/identd/mongoauth/pkg/api"
	"github.com/identd/mongoauth/pkg/clientcache"
	"github.com/identd/mongoauth/pkg/store"
)

// DefaultDatabaseURL is the descriptor used when none is configured.
const DefaultDatabaseURL = "localhost:27017"

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values.
//
// Default strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(&cfg.Database)
	applyCacheDefaults(&cfg.Cache)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyAdminDefaults(&cfg.Admin)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Tuned to an auth workload: hashing is CPU-bound and the client
	// cache contends on its mutex.
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"inuse_space",
			"goroutines",
			"mutex_count",
			"mutex_duration",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDatabaseDefaults sets directory backend defaults. A missing URL
// falls back to localhost with a warning, since a production deployment
// almost certainly wants an explicit descriptor.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if strings.TrimSpace(cfg.URL) == "" {
		logger.Warn("no database url configured, using default",
			logger.Descriptor(DefaultDatabaseURL))
		cfg.URL = DefaultDatabaseURL
	}
	if cfg.UserCollection == "" {
		cfg.UserCollection = "users"
	}
	if cfg.GroupCollection == "" {
		cfg.GroupCollection = "groups"
	}
	if cfg.Implementation == "" {
		cfg.Implementation = store.DefaultImplementation
	}
	if cfg.PasswordScheme == "" {
		cfg.PasswordScheme = "plain"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.SocketTimeout == 0 {
		cfg.SocketTimeout = 30 * time.Second
	}
}

// applyCacheDefaults sets client cache defaults. A negative TTL is
// preserved: it disables expiry entirely.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = clientcache.DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = clientcache.DefaultSweepInterval
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets admin API server defaults.
// The API is always enabled (mandatory for managing users and roles).
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.JWT.AccessTokenDuration == 0 {
		cfg.JWT.AccessTokenDuration = 15 * time.Minute
	}
}

// applyAdminDefaults sets admin user defaults.
func applyAdminDefaults(cfg *AdminConfig) {
	if cfg.Username == "" {
		cfg.Username = "admin"
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = []string{"admin"}
	}
	// PasswordHash has no default; it is set during init.
}

// GetDefaultConfig returns a Config struct with all default values
// applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:  DefaultDatabaseURL,
			Name: "auth",
		},
		Admin: AdminConfig{
			Username: "admin",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
