package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "ANNOTATOR_CONFIG"

// GetConfigPath returns the configuration file path: $ANNOTATOR_CONFIG when
// set, otherwise ~/.inline-annotator/config.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".inline-annotator", "config"), nil
}
