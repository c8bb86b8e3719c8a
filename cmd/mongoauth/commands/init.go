package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/identd/mongoauth/internal/cli/prompt"
	"github.com/identd/mongoauth/pkg/api"
	"github.com/identd/mongoauth/pkg/config"
	"github.com/identd/mongoauth/pkg/identity"
)

var (
	initForce     bool
	initSkipAdmin bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file and the admin user",
	Long: `Initialize a mongoauth configuration file and bootstrap the admin user.

By default, the configuration file is created at $XDG_CONFIG_HOME/mongoauth/config.yaml.
Use --config to specify a custom path.

A random JWT secret is generated, and you are prompted for the admin
password. The admin user is created in the database if it is reachable;
otherwise the stored hash is kept in the config and the user can be
created later with 'mongoauth user add'.

Examples:
  # Initialize with default location
  mongoauth init

  # Initialize with custom path
  mongoauth init --config /etc/mongoauth/config.yaml

  # Force overwrite existing config
  mongoauth init --force

  # Skip admin user bootstrap
  mongoauth init --skip-admin`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVar(&initSkipAdmin, "skip-admin", false, "Skip admin user bootstrap")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.GetDefaultConfig()

	// Generate a random JWT secret for development use. Production
	// deployments should override it with the environment variable.
	secret, err := generateSecret(32)
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.API.JWT.Secret = secret

	if !initSkipAdmin {
		if err := bootstrapAdmin(cmd.Context(), cfg); err != nil {
			return err
		}
	}

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to point at your database")
	fmt.Println("  2. Start the server with: mongoauth serve")
	fmt.Printf("  3. Or specify custom config: mongoauth serve --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Printf("    export %s=$(openssl rand -hex 32)\n", api.EnvJWTSecret)

	return nil
}

// bootstrapAdmin prompts for the admin password, records its hash in
// the config, and creates the admin user in the database when it is
// reachable.
func bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	password, err := prompt.PasswordWithConfirmation("Admin password", "Confirm password", 8)
	if err != nil {
		return fmt.Errorf("failed to read admin password: %w", err)
	}

	scheme, err := identity.SchemeByName(cfg.Database.PasswordScheme)
	if err != nil {
		return err
	}

	hash, err := scheme.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	cfg.Admin.PasswordHash = hash

	if ctx == nil {
		ctx = context.Background()
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: database not reachable, admin user not created: %v\n", err)
		fmt.Fprintln(os.Stderr, "Create it later with: mongoauth user add "+cfg.Admin.Username)
		return nil
	}
	defer cleanup()

	user := &identity.User{
		Username:     cfg.Admin.Username,
		PasswordHash: hash,
		Groups:       cfg.Admin.Groups,
	}
	if err := st.InsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("Admin user %q created with groups %v\n", cfg.Admin.Username, cfg.Admin.Groups)
	return nil
}

// generateSecret returns n random bytes hex-encoded.
func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
