// Package defaults locates the platform data directory that holds the run
// history database and the user's config file.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/PriceToggle/
//	Windows: %AppData%\PriceToggle\
//	Linux:   ~/.config/pricetoggle/
//
// Override with PRICETOGGLE_DATA_DIR environment variable.
package defaults

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// ConfigFile is the config file name looked up in the data directory.
	ConfigFile = "pricetoggle.yaml"
	// DatabaseFile is the run history database name.
	DatabaseFile = "pricetoggle.db"
)

// DataDir returns the platform-appropriate data directory.
// Set PRICETOGGLE_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("PRICETOGGLE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	// macOS/Windows: title case per platform convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "pricetoggle"), nil
	}
	return filepath.Join(configDir, "PriceToggle"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// DatabasePath returns the default run history database path.
func DatabasePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}

// ConfigPath returns the data directory config file if it exists, or ""
// when there is none.
func ConfigPath() string {
	dir, err := DataDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// WriteConfig writes data as the data directory config file. An existing
// file is kept unless overwrite is set.
func WriteConfig(data []byte, overwrite bool) (string, error) {
	dir, err := EnsureDataDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ConfigFile)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s already exists", path)
		}
	}
	// Config may carry portal passwords.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
