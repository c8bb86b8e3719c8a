package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/identd/mongoauth/internal/logger"
	"github.com/identd/mongoauth/internal/telemetry"
	"github.com/identd/mongoauth/pkg/api"
	"github.com/identd/mongoauth/pkg/clientcache"
	"github.com/identd/mongoauth/pkg/config"
	"github.com/identd/mongoauth/pkg/identity"
	"github.com/identd/mongoauth/pkg/metrics"
	mongostore "github.com/identd/mongoauth/pkg/store/mongo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mongoauth server",
	Long: `Start the mongoauth server with the specified configuration.

The server exposes the admin REST API, health probes, and (if enabled)
a Prometheus metrics endpoint. Database clients are cached and evicted
after the configured idle TTL.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/mongoauth/config.yaml.

Examples:
  # Start with default config location
  mongoauth serve

  # Start with custom config file
  mongoauth serve --config /etc/mongoauth/config.yaml

  # Start with environment variable overrides
  MONGOAUTH_LOGGING_LEVEL=DEBUG mongoauth serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "mongoauth",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "mongoauth",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"component": "server"},
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Initialize metrics FIRST so the cache and stores pick up an
	// enabled registry when they are created.
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer, err = metrics.NewServer(cfg.Metrics.Port)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Client cache shared by every store opened in this process.
	cache := mongostore.NewClientCache(
		clientcache.Options{
			TTL:           cfg.Cache.TTL,
			SweepInterval: cfg.Cache.SweepInterval,
		},
		cfg.Database.ConnectTimeout,
		cfg.Database.SocketTimeout,
	)
	defer cache.Shutdown(context.Background())
	if m := metrics.NewCacheMetrics(); m != nil {
		cache.SetMetrics(m)
	}
	cache.AddEvictionListener(func(descriptor string, _ *driver.Client) {
		logger.Debug("database client evicted", logger.Descriptor(descriptor))
	})
	logger.Info("Client cache configured",
		"ttl", cfg.Cache.TTL,
		"sweep_interval", cfg.Cache.SweepInterval)

	reg, err := newRegistry(cache)
	if err != nil {
		return err
	}

	st, err := reg.Open(ctx, cfg.Database.Implementation, cfg.Database.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open directory backend: %w", err)
	}
	defer func() { _ = st.Close(context.Background()) }()
	logger.Info("Directory backend opened",
		"implementation", cfg.Database.Implementation,
		"url", cfg.Database.URL,
		"database", cfg.Database.Name)

	scheme, err := identity.SchemeByName(cfg.Database.PasswordScheme)
	if err != nil {
		return err
	}

	authenticator := identity.NewAuthenticator(st, scheme)
	engine := identity.NewEngine(st, scheme)

	apiServer, err := api.NewServer(cfg.API, authenticator, engine, st)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	// Start servers in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", logger.Err(err))
			}
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		if metricsServer != nil {
			_ = metricsServer.Stop(shutdownCtx)
		}
		<-serverDone
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
