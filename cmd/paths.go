package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

const (
	appDirName = "privscan"
	// dataDirEnvVar overrides the platform data directory.
	dataDirEnvVar = "PRIVSCAN_DATA_DIR"
	// cookieDBFileName is looked up in the data directory when no --cookie-db is given.
	cookieDBFileName = "open-cookie-database.json"
)

// getDataDir returns the appropriate data directory for the current OS
// following XDG Base Directory specification on Linux/Unix
func getDataDir() (string, error) {
	var baseDir string

	switch {
	case os.Getenv(dataDirEnvVar) != "":
		baseDir = os.Getenv(dataDirEnvVar)

	case runtime.GOOS == "windows":
		// Windows: %LOCALAPPDATA%\privscan
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("APPDATA")
		}
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows data directory")
		}
		baseDir = filepath.Join(baseDir, appDirName)

	case runtime.GOOS == "darwin":
		// macOS: ~/Library/Application Support/privscan
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support", appDirName)

	default:
		// Linux/Unix: $XDG_DATA_HOME/privscan > ~/.local/share/privscan
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			baseDir = filepath.Join(xdgDataHome, appDirName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".local", "share", appDirName)
		}
	}

	if err := os.MkdirAll(baseDir, constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return baseDir, nil
}

// resolveCookieDBPath returns the configured cookie database, or the copy in
// the data directory if one exists. An empty result disables annotation.
func resolveCookieDBPath(configured string) string {
	if configured != "" {
		return configured
	}
	dataDir, err := getDataDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(dataDir, cookieDBFileName)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// configFilePath returns the config file viper would read by default.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "~/.privscan.yaml"
	}
	return filepath.Join(homeDir, ".privscan.yaml")
}
