package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/smrt/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage smrt configuration",
	Long: `am — Manage smrt configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/smrt/smrt.toml)
3. User config (~/.smrt/smrt.toml)
4. Project config (./smrt.toml, searched upward)
5. Environment variables (SMRT_* prefix, .env is loaded first)

Examples:
  smrt am show                    # Show current configuration
  smrt am show --format json      # Show configuration in JSON format
  smrt am get cache.ttl_minutes   # Get a specific config value
  smrt am validate                # Validate current configuration
  smrt am init                    # Write a default smrt.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g., data.dir, cache.ttl_minutes)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which configuration files are checked",
	RunE:  runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default smrt.toml to the project directory",
	RunE:  runAmInit,
}

var (
	configFormat string
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing smrt.toml (a .back copy is kept)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

// writeConfig renders cfg without the API key
func writeConfig(w io.Writer, cfg *am.Config, format string) error {
	redacted := *cfg
	if redacted.OpenRouter.APIKey != "" {
		redacted.OpenRouter.APIKey = "********"
	}

	switch format {
	case "json":
		return outputJSON(w, redacted)
	case "yaml":
		data, err := yaml.Marshal(redacted)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(w, "# smrt configuration\n%s", data)
	case "toml":
		data, err := toml.Marshal(redacted)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(w, "# smrt configuration\n%s", data)
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  [DEFAULT]  Built-in defaults")
	for _, path := range am.ConfigCascade() {
		mark := "missing"
		if _, err := os.Stat(path); err == nil {
			mark = "found"
		}
		fmt.Fprintf(w, "  [FILE]     %s (%s)\n", path, mark)
	}
	fmt.Fprintln(w, "  [ENV]      SMRT_* environment variables")
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ProjectConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg, err := am.Defaults()
	if err != nil {
		return fmt.Errorf("failed to build defaults: %w", err)
	}
	if err := am.Write(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
