package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

var (
	// ConfigDir is the global configuration directory (~/.dlts)
	ConfigDir string

	// FormsDir holds saved test forms
	FormsDir string

	// ObjectsDir is the default root of the directory object store
	ObjectsDir string

	// DatabasePath is the SQLite database file of the local backend
	DatabasePath string

	// EnvFile is the global .env file, loaded after the local ones
	EnvFile string
)

// Initialize sets up the configuration directories
// It creates ~/.dlts/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return initializeAt(filepath.Join(homeDir, ".dlts"))
}

func initializeAt(dir string) error {
	ConfigDir = dir
	FormsDir = filepath.Join(ConfigDir, "forms")
	ObjectsDir = filepath.Join(ConfigDir, "objects")
	DatabasePath = filepath.Join(ConfigDir, "dlts.db")
	EnvFile = filepath.Join(ConfigDir, ".env")

	dirs := []string{ConfigDir, FormsDir, ObjectsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ResolvePath expands a leading ~/ and makes relative paths relative to the
// config directory. Empty input returns fallback.
func ResolvePath(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(ConfigDir, path), nil
}

// EnvFiles returns the .env files to load, most specific first
func EnvFiles() []string {
	files := []string{".env.local", ".env"}
	if EnvFile != "" {
		files = append(files, EnvFile)
	}
	return files
}
