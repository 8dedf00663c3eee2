package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# vtable Configuration File
#
# Every key can be overridden with an environment variable:
#   VTABLE_<SECTION>_<KEY>, e.g. VTABLE_CACHE_BLOCK_SIZE=500
#
# Sizes accept human-readable values ("1Mi", "64Ki"), durations accept Go
# duration strings ("200ms", "10s").

`

// InitConfig writes a default configuration file at the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	return writeConfigFile(path, append([]byte(configHeader), data...))
}
