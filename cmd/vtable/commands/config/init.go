package config

import (
	"fmt"

	"github.com/marmos91/vtable/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with the defaults.

The file is written to --config, or to $XDG_CONFIG_HOME/vtable/config.yaml
when no path is given.

Examples:
  # Write the default config
  vtable config init

  # Replace an existing file
  vtable config init --config ./vtable.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	path := configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(initForce); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, initForce); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}
