package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/23skdu/numatopo/internal/numa"
)

// EnvPrefix prefixes every environment variable read by Config
const EnvPrefix = "NUMATOPO"

// Config validation errors
var (
	ErrInvalidGranule   = errors.New("granule must be positive")
	ErrInvalidLogFormat = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidFakeNodes = fmt.Errorf("fake_nodes must not exceed %d", numa.MaxNodes)
)

// Config holds the CLI configuration. Environment variables are read first,
// command line flags override them.
type Config struct {
	numa.Config

	Total       uint64 `envconfig:"TOTAL" default:"0"`
	Granule     uint64 `envconfig:"GRANULE" default:"2097152"`
	IgnoreNodes uint32 `envconfig:"IGNORE_NODES" default:"0"`
	JSON        bool   `envconfig:"JSON" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"console"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Config:      numa.DefaultConfig(),
		Total:       0,
		Granule:     numa.DefaultGranule,
		IgnoreNodes: 0,
		LogFormat:   "console",
		LogLevel:    "info",
	}
}

// LoadConfig reads an optional dotenv file and then the NUMATOPO_* environment.
func LoadConfig(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.Granule == 0 {
		return ErrInvalidGranule
	}
	if cfg.FakeNodes > numa.MaxNodes {
		return ErrInvalidFakeNodes
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return cfg.Validate()
}
