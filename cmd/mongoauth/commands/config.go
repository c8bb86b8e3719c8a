package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/identd/mongoauth/internal/cli/output"
	"github.com/identd/mongoauth/pkg/config"
)

var (
	configShowOutput   string
	configSchemaOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current mongoauth configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  mongoauth config show

  # Show as JSON
  mongoauth config show --output json

  # Show specific config file
  mongoauth config show --config /etc/mongoauth/config.yaml`,
	RunE: runConfigShow,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for configuration",
	Long: `Generate a JSON schema for the mongoauth configuration file.

The schema can be used for:
  - IDE autocompletion (VS Code, IntelliJ, etc.)
  - Configuration file validation
  - Documentation generation

Examples:
  # Print schema to stdout
  mongoauth config schema

  # Save schema to file
  mongoauth config schema --output config.schema.json`,
	RunE: runConfigSchema,
}

func init() {
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "yaml", "Output format (yaml|json)")
	configSchemaCmd.Flags().StringVarP(&configSchemaOutput, "output", "o", "", "Output file (default: stdout)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(configShowOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}

func runConfigSchema(cmd *cobra.Command, args []string) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "MongoAuth Configuration"
	schema.Description = "Configuration schema for the mongoauth server"

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if configSchemaOutput != "" {
		if err := os.WriteFile(configSchemaOutput, schemaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", configSchemaOutput)
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
	return nil
}
