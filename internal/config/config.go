// Package config loads the daemon configuration from a YAML file with
// environment variable overrides (DW_ prefix).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/driftwave/internal/logging"
	"github.com/sydlexius/driftwave/internal/run"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Music      MusicConfig      `yaml:"music"`
	Generator  run.Config       `yaml:"generator"`
	AutoQueue  AutoQueueConfig  `yaml:"auto_queue"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EncryptionConfig holds the API key encryption key.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// MusicConfig holds music library settings.
type MusicConfig struct {
	LibraryPath string `yaml:"library_path"`
	Watch       bool   `yaml:"watch"`
}

// AutoQueueConfig holds the unattended queue-refill trigger settings.
type AutoQueueConfig struct {
	Enabled  bool `yaml:"enabled"`
	LowWater int  `yaml:"low_water"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/data/driftwave.db",
		},
		Music: MusicConfig{
			LibraryPath: "/music",
			Watch:       true,
		},
		Generator: run.Config{
			Strategy:         "artist",
			SeedLimit:        5,
			SimilarLimit:     10,
			TracksPerArtist:  3,
			TotalLimit:       25,
			BlendRatio:       0.5,
			AllowUnrated:     true,
			SkipDuplicates:   true,
			PlaylistMode:     run.PlaylistCreate,
			PlaylistTemplate: "Driftwave: %",
		},
		AutoQueue: AutoQueueConfig{
			Enabled:  false,
			LowWater: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DW_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DW_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("DW_MUSIC_PATH"); v != "" {
		c.Music.LibraryPath = v
	}
	if v := os.Getenv("DW_BLEND_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generator.BlendRatio = ratio
		}
	}
	if v := os.Getenv("DW_AUTO_QUEUE"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.AutoQueue.Enabled = enabled
		}
	}
	if v := os.Getenv("DW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Music.LibraryPath == "" {
		return fmt.Errorf("music library path is required")
	}
	if c.AutoQueue.LowWater < 0 {
		return fmt.Errorf("auto-queue low water must not be negative, got %d", c.AutoQueue.LowWater)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	generator, err := run.NewConfig(c.Generator)
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	c.Generator = generator
	return nil
}
