// Package config loads Argus configuration from a YAML file and
// ARGUS_-prefixed environment variables, with sane defaults for local use.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DataPaths holds data directory and file path configuration.
type DataPaths struct {
	// DataDir is the base data directory (ARGUS_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the database file path (ARGUS_SQLITE_PATH, default: ${DataDir}/argus.db)
	SQLitePath string `mapstructure:"sqlite_path"`
	// RulesConfigPath is an optional YAML file overriding rule thresholds
	// and windows (ARGUS_RULES_CONFIG). Missing file means defaults.
	RulesConfigPath string `mapstructure:"rules_config"`
}

// Config holds all configuration for the Argus service.
type Config struct {
	DataPaths DataPaths `mapstructure:"data_paths"`

	API struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Engine struct {
		// Workers bounds concurrent rule evaluation within one run.
		Workers int `mapstructure:"workers"`
		// DedupLookback is how far back a prior alert suppresses a new
		// candidate for the same rule.
		DedupLookback time.Duration `mapstructure:"dedup_lookback"`
		// SchedulerEnabled controls the periodic detection runs.
		SchedulerEnabled bool `mapstructure:"scheduler_enabled"`
		// RunInterval is the period between scheduled detection runs.
		RunInterval time.Duration `mapstructure:"run_interval"`
	} `mapstructure:"engine"`

	Logging struct {
		Level  string `mapstructure:"level"`  // debug, info, warn, error
		Format string `mapstructure:"format"` // json, console
	} `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // empty = derive from data_dir
	viper.SetDefault("data_paths.rules_config", "")

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("engine.workers", 3)
	viper.SetDefault("engine.dedup_lookback", time.Hour)
	viper.SetDefault("engine.scheduler_enabled", true)
	viper.SetDefault("engine.run_interval", time.Minute)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func loadFromEnv() {
	viper.SetEnvPrefix("ARGUS")
	viper.AutomaticEnv()

	_ = viper.BindEnv("data_paths.data_dir", "ARGUS_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", "ARGUS_SQLITE_PATH")
	_ = viper.BindEnv("data_paths.rules_config", "ARGUS_RULES_CONFIG")
	_ = viper.BindEnv("api.port", "ARGUS_API_PORT")
	_ = viper.BindEnv("logging.level", "ARGUS_LOG_LEVEL")
}

// LoadConfig loads configuration from config.yaml and environment
// variables. A missing config file is fine; defaults and env apply.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ResolveDataPaths derives unset paths from DataDir.
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "argus.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

func validateConfig(config *Config) error {
	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d (must be 1-65535)", config.API.Port)
	}
	if config.API.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be positive, got %d", config.API.RateLimit.RequestsPerSecond)
	}
	if config.API.RateLimit.Burst < 1 {
		return fmt.Errorf("api.rate_limit.burst must be positive, got %d", config.API.RateLimit.Burst)
	}

	if config.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be positive, got %d", config.Engine.Workers)
	}
	if config.Engine.DedupLookback < time.Minute {
		return fmt.Errorf("engine.dedup_lookback must be at least 1 minute, got %v", config.Engine.DedupLookback)
	}
	if config.Engine.SchedulerEnabled && config.Engine.RunInterval < time.Second {
		return fmt.Errorf("engine.run_interval must be at least 1 second, got %v", config.Engine.RunInterval)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", config.Logging.Level)
	}
	switch config.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", config.Logging.Format)
	}

	return nil
}
