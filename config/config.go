package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from an optional YAML
// file, with environment variables taking precedence.
type Config struct {
	Port string `yaml:"port"`

	ChartAPI struct {
		// BaseURL is the chart endpoint prefix; {ticker} and the query string
		// are appended to it. Point it at a relaying proxy when the origin is
		// not directly reachable.
		BaseURL      string `yaml:"base_url"`
		MarketSuffix string `yaml:"market_suffix"`
	} `yaml:"chart_api"`

	Batch struct {
		Size    int `yaml:"size"`
		DelayMS int `yaml:"delay_ms"`
	} `yaml:"batch"`

	Window struct {
		BeforeDays int `yaml:"before_days"`
		AfterDays  int `yaml:"after_days"`
	} `yaml:"window"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE, default
// config.yaml), then applies environment variable overrides and defaults.
// A .env file is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CHART_BASE_URL"); v != "" {
		cfg.ChartAPI.BaseURL = v
	}
	if v := os.Getenv("MARKET_SUFFIX"); v != "" {
		cfg.ChartAPI.MarketSuffix = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_SIZE %q: %w", v, err)
		}
		cfg.Batch.Size = n
	}
	if v := os.Getenv("BATCH_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_DELAY_MS %q: %w", v, err)
		}
		cfg.Batch.DelayMS = n
	}

	// Defaults
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ChartAPI.BaseURL == "" {
		cfg.ChartAPI.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if cfg.ChartAPI.MarketSuffix == "" {
		cfg.ChartAPI.MarketSuffix = ".T"
	}
	if cfg.Batch.Size <= 0 {
		cfg.Batch.Size = 5
	}
	if cfg.Batch.DelayMS <= 0 {
		cfg.Batch.DelayMS = 1500
	}
	if cfg.Window.BeforeDays <= 0 {
		cfg.Window.BeforeDays = 45
	}
	if cfg.Window.AfterDays <= 0 {
		cfg.Window.AfterDays = 14
	}

	return cfg, nil
}
