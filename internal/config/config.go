// Package config handles loading and managing chatvault configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the chatvault configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Export ExportConfig `toml:"export"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Search SearchConfig `toml:"search"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"` // overrides <data_dir>/chatvault.db
}

// ExportConfig locates the export to build from.
type ExportConfig struct {
	SourceDir string `toml:"source_dir"` // used when build is given no directory
}

// StoreConfig sizes the connection pool and the query worker pool.
type StoreConfig struct {
	MaxConnections int `toml:"max_connections"`
	Workers        int `toml:"workers"` // 0 = number of CPUs
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort        int      `toml:"api_port"`  // HTTP server port (default: 8080)
	BindAddr       string   `toml:"bind_addr"` // default: 127.0.0.1
	CORSOrigins    []string `toml:"cors_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// SearchConfig holds search limits.
type SearchConfig struct {
	MaxResults int `toml:"max_results"` // cap on hits per search, 0 = unlimited
}

// DefaultHome returns the default chatvault home directory.
// Respects CHATVAULT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CHATVAULT_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatvault"
	}
	return filepath.Join(home, ".chatvault")
}

// NewDefaultConfig returns a configuration with default values rooted at
// DefaultHome.
func NewDefaultConfig() *Config {
	return newConfig(DefaultHome())
}

func newConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			DataDir: homeDir,
		},
		Store: StoreConfig{
			MaxConnections: 32,
		},
		Server: ServerConfig{
			APIPort:        8080,
			BindAddr:       "127.0.0.1",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Search: SearchConfig{
			MaxResults: 500,
		},
	}
}

// Load reads the configuration.
//
// With an explicit path the file must exist, and the home directory as well
// as relative paths inside the file resolve against the file's directory.
// Otherwise config.toml is looked up in homeDir (or DefaultHome when homeDir
// is empty) and a missing file means defaults.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""

	switch {
	case explicit:
		path = expandPath(path)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		path = abs
		if homeDir == "" {
			homeDir = filepath.Dir(path)
		}
	case homeDir != "":
		homeDir = expandPath(homeDir)
		path = filepath.Join(homeDir, "config.toml")
	default:
		homeDir = DefaultHome()
		path = filepath.Join(homeDir, "config.toml")
	}
	homeDir = expandPath(homeDir)

	cfg := newConfig(homeDir)
	cfg.configPath = path

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	baseDir := filepath.Dir(path)
	cfg.Data.DataDir = resolvePath(cfg.Data.DataDir, baseDir, explicit)
	cfg.Data.DatabasePath = resolvePath(cfg.Data.DatabasePath, baseDir, explicit)
	cfg.Export.SourceDir = resolvePath(cfg.Export.SourceDir, baseDir, explicit)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decodeError adds a hint to TOML errors caused by Windows paths written
// with backslashes inside double quotes.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n"+
			"hint: backslashes in double-quoted strings are escapes; "+
			"use forward slashes (C:/chat/export) or single quotes ('C:\\chat\\export')", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Store.MaxConnections <= 0 {
		return fmt.Errorf("store.max_connections must be positive, got %d", c.Store.MaxConnections)
	}
	if c.Store.Workers < 0 {
		return fmt.Errorf("store.workers must not be negative, got %d", c.Store.Workers)
	}
	if c.Server.APIPort < 0 || c.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port out of range: %d", c.Server.APIPort)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("server.rate_limit_rps and rate_limit_burst must be positive")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative, got %d", c.Search.MaxResults)
	}
	return nil
}

// ConfigFilePath returns the config file that was (or would have been) read.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// DatabasePath returns the path to the archive database.
func (c *Config) DatabasePath() string {
	if c.Data.DatabasePath != "" {
		return c.Data.DatabasePath
	}
	return filepath.Join(c.Data.DataDir, "chatvault.db")
}

// resolvePath expands ~ and, for explicitly given config files, anchors
// relative paths at the config file's directory.
func resolvePath(p, baseDir string, anchor bool) string {
	p = expandPath(p)
	if p == "" || !anchor || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// expandPath expands a leading ~ to the user's home directory. On Windows
// it also strips one pair of matching quotes left by CMD.
func expandPath(path string) string {
	if runtime.GOOS == "windows" && len(path) >= 2 {
		first, last := path[0], path[len(path)-1]
		if (first == '\'' || first == '"') && first == last {
			path = path[1 : len(path)-1]
		}
	}
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		return path // ~user is not expanded
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
