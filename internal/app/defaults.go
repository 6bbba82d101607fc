package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first.
// Environment variables:
//   - ADEPLOY_CONFIG_PATH: config file location (default: ~/.config/adeploy.json)
//   - ADEPLOY_HOME: base directory for run state (default: ~/.local/share/adeploy)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking ADEPLOY_CONFIG_PATH
// env var first, then falling back to the default ~/.config/adeploy.json.
func getConfigPath() (string, error) {
	if path := os.Getenv("ADEPLOY_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "adeploy.json"), nil
}

// getBaseDir returns the base directory for run state, checking
// ADEPLOY_HOME env var first, then falling back to the XDG default
// ~/.local/share/adeploy.
func getBaseDir() (string, error) {
	if path := os.Getenv("ADEPLOY_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "adeploy"), nil
}
