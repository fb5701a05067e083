package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath returns <UserConfigDir>/buildseal/config.toml.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, "buildseal", "config.toml"), nil
}
