package config

import (
	"fmt"

	"github.com/marmos91/vtable/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the vtable configuration file.

Checks for syntax errors and invalid values.

Examples:
  # Validate default config
  vtable config validate

  # Validate specific config file
  vtable config validate --config /etc/vtable/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
		if !config.DefaultConfigExists() {
			displayPath += " (not found, using defaults)"
		}
	}

	var warnings []string
	if cfg.Cache.Workers == 1 {
		warnings = append(warnings, "cache.workers is 1: visible and prefetch loads are serialized")
	}
	if cfg.Reader.MaxCacheRows < cfg.Cache.BlockSize {
		warnings = append(warnings, "reader.max_cache_rows is smaller than cache.block_size: every block load misses the row cache")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		warnings = append(warnings, "telemetry is enabled without an endpoint")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Block size:      %d\n", cfg.Cache.BlockSize)
	_, _ = fmt.Fprintf(out, "  Preload policy:  %s\n", cfg.Cache.PreloadPolicy)
	_, _ = fmt.Fprintf(out, "  Workers:         %d\n", cfg.Cache.Workers)
	_, _ = fmt.Fprintf(out, "  Delimiter:       %q\n", cfg.Reader.Delimiter)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
