// Package config provides configuration management for taller.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds all the path configurations for taller.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/taller)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/taller)
	DataDir string

	// CacheDir is the directory for logs and lock files (~/.cache/taller)
	CacheDir string
}

// DefaultPaths returns the default paths based on XDG Base Directory spec.
// On Windows, it uses %APPDATA% instead.
func DefaultPaths() *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}

		return &Paths{
			ConfigDir: filepath.Join(appData, "taller"),
			DataDir:   filepath.Join(localAppData, "taller"),
			CacheDir:  filepath.Join(localAppData, "taller", "cache"),
		}
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		cacheHome = filepath.Join(home, ".cache")
	}

	return &Paths{
		ConfigDir: filepath.Join(configHome, "taller"),
		DataDir:   filepath.Join(dataHome, "taller"),
		CacheDir:  filepath.Join(cacheHome, "taller"),
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// CatalogFile returns the path to the SQLite catalog.
func (p *Paths) CatalogFile() string {
	return filepath.Join(p.DataDir, "catalog.db")
}

// LogFile returns the path to the log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.CacheDir, "taller.log")
}

// LockFile returns the path to the interactive order form's lock.
func (p *Paths) LockFile() string {
	return filepath.Join(p.CacheDir, "order.lock")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, p.DataDir, p.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CatalogPath returns the configured catalog path, or the default one.
func (c *Config) CatalogPath(p *Paths) string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	return p.CatalogFile()
}

// LogPath returns the configured log file, or the default one.
func (c *Config) LogPath(p *Paths) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return p.LogFile()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
