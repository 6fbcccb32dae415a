package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CTAG07/catdex/pkg/templating"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
)

const defaultConfigPath = "./config.json"

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	Addr             string `json:"addr"`
	LogLevel         string `json:"log_level"`
	StaticDir        string `json:"static_dir"`
	IndexPath        string `json:"index_path"`
	DynamicTemplate  string `json:"dynamic_template"`
	ShowFilesListing bool   `json:"show_files_listing"`
	ReadTimeoutSec   int    `json:"read_timeout_sec"`
	WriteTimeoutSec  int    `json:"write_timeout_sec"`
	IdleTimeoutSec   int    `json:"idle_timeout_sec"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:             "127.0.0.1:8080",
		LogLevel:         "info",
		StaticDir:        "./static",
		IndexPath:        "./static/index.html",
		DynamicTemplate:  "index2",
		ShowFilesListing: true,
		ReadTimeoutSec:   30,
		WriteTimeoutSec:  30,
		IdleTimeoutSec:   120,
	}
}

// DefaultConfig returns the full configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: templating.DefaultConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A file that omits a whole section still gets its defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Templates == nil {
		config.Templates = templating.DefaultConfig()
	}

	return config, nil
}

// LoadDotEnv loads variables from an optional .env file into the process
// environment. Variables already set are left alone unless overload is true,
// which is how a reload picks up edits to the file. A missing file is not an
// error.
func LoadDotEnv(path string, overload bool) error {
	load := godotenv.Load
	if overload {
		load = godotenv.Overload
	}
	if err := load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from CATDEX_* environment variables. Moving
// the static dir also moves the index file into it unless CATDEX_INDEX_PATH
// names one explicitly.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CATDEX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CATDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CATDEX_STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
		c.Server.IndexPath = filepath.Join(v, "index.html")
	}
	if v := os.Getenv("CATDEX_INDEX_PATH"); v != "" {
		c.Server.IndexPath = v
	}
	if v := os.Getenv("CATDEX_TEMPLATE_DIR"); v != "" {
		c.Templates.Dir = v
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server == nil || c.Templates == nil {
		return errors.New("config is missing a section")
	}
	if c.Server.Addr == "" {
		return errors.New("server address is empty")
	}
	if c.Server.StaticDir == "" {
		return errors.New("static directory is empty")
	}
	if c.Server.IndexPath == "" {
		return errors.New("index path is empty")
	}
	if c.Templates.Dir == "" {
		return errors.New("template directory is empty")
	}
	if !strings.HasPrefix(c.Templates.Extension, ".") || len(c.Templates.Extension) < 2 {
		return fmt.Errorf("invalid template extension %q", c.Templates.Extension)
	}
	if c.Server.ReadTimeoutSec < 0 || c.Server.WriteTimeoutSec < 0 || c.Server.IdleTimeoutSec < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (s *ServerConfig) readTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSec) * time.Second
}

func (s *ServerConfig) writeTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSec) * time.Second
}

func (s *ServerConfig) idleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func configPath() string {
	if p := os.Getenv("CATDEX_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}
