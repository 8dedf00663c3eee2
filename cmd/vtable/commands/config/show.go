package config

import (
	"github.com/marmos91/vtable/internal/cli/output"
	"github.com/marmos91/vtable/pkg/config"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective vtable configuration: the file, environment
overrides and defaults merged together.

By default outputs YAML. Use --output json for JSON.

Examples:
  # Show the effective config
  vtable config show

  # Show as JSON
  vtable config show -o json`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	format, _ := cmd.Flags().GetString("output")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == output.FormatTable {
		f = output.FormatYAML
	}
	return output.Encode(cmd.OutOrStdout(), f, cfg)
}
