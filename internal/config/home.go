package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the tblogs state directory.
const HomeEnv = "TBLOGS_HOME"

// GetHome returns the tblogs state directory.
// Priority order:
//  1. TBLOGS_HOME environment variable (if set)
//  2. ~/.tblogs
//  3. ./.tblogs when no home directory is available
//
// The directory is created if it doesn't exist.
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil || userHome == "" {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return "", fmt.Errorf("get working directory: %w", cwdErr)
			}
			userHome = cwd
		}
		home = filepath.Join(userHome, ".tblogs")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create tblogs home directory: %w", err)
	}

	return home, nil
}

// DefaultConfigPath returns $TBLOGS_HOME/config.yaml.
func DefaultConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load resolves the home directory and loads configuration from path, or
// from the default location when path is empty.
func Load(path string) (*Config, string, error) {
	home, err := GetHome()
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		path = DefaultConfigPath(home)
	}
	cfg, err := LoadConfig(path, home)
	if err != nil {
		return nil, "", err
	}
	return cfg, home, nil
}
