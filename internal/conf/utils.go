package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/nutrilog/nutrilog/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config file, only that directory is returned.
// A default config is created in the first entry.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", "nutrilog"),
			".",
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "nutrilog"),
			".",
			"/etc/nutrilog",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// EnsureDir creates path (and parents) if it does not exist yet.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-directory").
			Build()
	}
	return nil
}
