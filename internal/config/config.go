package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Search modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config represents the taller configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Catalog CatalogConfig `yaml:"catalog"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// SearchConfig holds the order form's search settings.
type SearchConfig struct {
	Mode       string    `yaml:"mode"`        // local or remote
	DebounceMs int       `yaml:"debounce_ms"` // Quiet period before a query is resolved
	TimeoutMs  int       `yaml:"timeout_ms"`  // Bound on a single search
	Endpoints  Endpoints `yaml:"endpoints"`   // Remote search URLs per field
}

// Endpoints holds the remote search URL of each field.
type Endpoints struct {
	Technician string `yaml:"technician"`
	Client     string `yaml:"client"`
	Vehicle    string `yaml:"vehicle"`
	Product    string `yaml:"product"`
}

// CatalogConfig holds the SQLite catalog settings.
type CatalogConfig struct {
	Path        string `yaml:"path"`          // Catalog database (overrides default)
	UseForLocal bool   `yaml:"use_for_local"` // Local datasets come from the catalog
}

// ServerConfig holds the development search backend settings.
type ServerConfig struct {
	Addr         string `yaml:"addr"`          // Listen address
	UnwrapSingle bool   `yaml:"unwrap_single"` // Answer a single match as an object
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Mode:       ModeLocal,
			DebounceMs: 300,
			TimeoutMs:  10000,
		},
		Catalog: CatalogConfig{
			Path:        "", // Use default from paths
			UseForLocal: false,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8787",
			UnwrapSingle: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "", // Use default from paths
		},
	}
}

// For returns the endpoint configured for a field name.
func (e Endpoints) For(field string) string {
	switch field {
	case "technician":
		return e.Technician
	case "client":
		return e.Client
	case "vehicle":
		return e.Vehicle
	case "product":
		return e.Product
	default:
		return ""
	}
}

// Map returns the configured endpoints keyed by field name, omitting
// empty ones.
func (e Endpoints) Map() map[string]string {
	out := make(map[string]string, 4)
	for _, f := range []string{"technician", "client", "vehicle", "product"} {
		if v := e.For(f); v != "" {
			out[f] = v
		}
	}
	return out
}

// Debounce returns the debounce window as a duration.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// Timeout returns the search timeout as a duration.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "search.mode" or "search.endpoints.client"
func (c *Config) Get(key string) (string, error) {
	section, field, ok := strings.Cut(key, ".")
	if !ok {
		return "", errors.New("key must be in format 'section.key'")
	}

	switch section {
	case "search":
		return c.getSearchField(field)
	case "catalog":
		return c.getCatalogField(field)
	case "server":
		return c.getServerField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, ok := strings.Cut(key, ".")
	if !ok {
		return errors.New("key must be in format 'section.key'")
	}

	switch section {
	case "search":
		return c.setSearchField(field, value)
	case "catalog":
		return c.setCatalogField(field, value)
	case "server":
		return c.setServerField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getSearchField(field string) (string, error) {
	if name, ok := strings.CutPrefix(field, "endpoints."); ok {
		if !isValidField(name) {
			return "", fmt.Errorf("unknown field: search.%s", field)
		}
		return c.Search.Endpoints.For(name), nil
	}
	switch field {
	case "mode":
		return c.Search.Mode, nil
	case "debounce_ms":
		return strconv.Itoa(c.Search.DebounceMs), nil
	case "timeout_ms":
		return strconv.Itoa(c.Search.TimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: search.%s", field)
	}
}

func (c *Config) setSearchField(field, value string) error {
	if name, ok := strings.CutPrefix(field, "endpoints."); ok {
		switch name {
		case "technician":
			c.Search.Endpoints.Technician = value
		case "client":
			c.Search.Endpoints.Client = value
		case "vehicle":
			c.Search.Endpoints.Vehicle = value
		case "product":
			c.Search.Endpoints.Product = value
		default:
			return fmt.Errorf("unknown field: search.%s", field)
		}
		return nil
	}
	switch field {
	case "mode":
		if !isValidMode(value) {
			return fmt.Errorf("invalid value for mode: %s (must be local or remote)", value)
		}
		c.Search.Mode = value
	case "debounce_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for debounce_ms: %w", err)
		}
		c.Search.DebounceMs = v
	case "timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for timeout_ms: %w", err)
		}
		c.Search.TimeoutMs = v
	default:
		return fmt.Errorf("unknown field: search.%s", field)
	}
	return nil
}

func (c *Config) getCatalogField(field string) (string, error) {
	switch field {
	case "path":
		return c.Catalog.Path, nil
	case "use_for_local":
		return strconv.FormatBool(c.Catalog.UseForLocal), nil
	default:
		return "", fmt.Errorf("unknown field: catalog.%s", field)
	}
}

func (c *Config) setCatalogField(field, value string) error {
	switch field {
	case "path":
		c.Catalog.Path = value
	case "use_for_local":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for use_for_local: %w", err)
		}
		c.Catalog.UseForLocal = v
	default:
		return fmt.Errorf("unknown field: catalog.%s", field)
	}
	return nil
}

func (c *Config) getServerField(field string) (string, error) {
	switch field {
	case "addr":
		return c.Server.Addr, nil
	case "unwrap_single":
		return strconv.FormatBool(c.Server.UnwrapSingle), nil
	default:
		return "", fmt.Errorf("unknown field: server.%s", field)
	}
}

func (c *Config) setServerField(field, value string) error {
	switch field {
	case "addr":
		c.Server.Addr = value
	case "unwrap_single":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for unwrap_single: %w", err)
		}
		c.Server.UnwrapSingle = v
	default:
		return fmt.Errorf("unknown field: server.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid value for level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidMode(c.Search.Mode) {
		return fmt.Errorf("search.mode must be local or remote (got: %s)", c.Search.Mode)
	}

	if c.Search.DebounceMs < 0 {
		return errors.New("search.debounce_ms must be >= 0")
	}

	if c.Search.TimeoutMs < 0 {
		return errors.New("search.timeout_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}

	return nil
}

// Remote reports whether the selectors query the remote endpoints.
func (c *Config) Remote() bool {
	return c.Search.Mode == ModeRemote
}

func isValidMode(mode string) bool {
	switch mode {
	case ModeLocal, ModeRemote:
		return true
	default:
		return false
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidField(name string) bool {
	switch name {
	case "technician", "client", "vehicle", "product":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TALLER_SEARCH_MODE"); v != "" {
		if isValidMode(v) {
			c.Search.Mode = v
		}
	}
	// Mock data always wins over the configured mode.
	if v := os.Getenv("TALLER_USE_MOCK_DATA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Search.Mode = ModeLocal
		}
	}
	if v := os.Getenv("TALLER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("TALLER_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"search.mode",
		"search.debounce_ms",
		"search.timeout_ms",
		"search.endpoints.technician",
		"search.endpoints.client",
		"search.endpoints.vehicle",
		"search.endpoints.product",
		"catalog.path",
		"catalog.use_for_local",
		"server.addr",
		"server.unwrap_single",
		"log.level",
		"log.file",
	}
}
