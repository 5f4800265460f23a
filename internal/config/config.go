// Package config loads the server configuration from config/noorid.yaml
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Oracle configures the external price feed consulted by the lending
// engine.
type Oracle struct {
	URL string `yaml:"url"`
	// APIKey is sent in the X-API-Key header when set.
	APIKey string `yaml:"api_key"`
	// PricePath is the gjson path extracting the price from the response
	// body.
	PricePath string `yaml:"price_path"`
	// TimestampPath extracts the quote's unix timestamp; empty means the
	// response time is used.
	TimestampPath string `yaml:"timestamp_path"`
}

// Config is the top-level server configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	// DatabaseURL selects the postgres store; empty runs on the in-memory
	// store.
	DatabaseURL  string `yaml:"database_url"`
	EventLogPath string `yaml:"event_log_path"`
	// JWTSecret signs and verifies API bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`
	// RateLimitPerSecond / RateLimitBurst bound per-caller request rates.
	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
	// AccrualSweepSchedule is the cron spec for the savings interest
	// sweeper.
	AccrualSweepSchedule string `yaml:"accrual_sweep_schedule"`
	// BridgePollInterval is how often the release poller scans the delay
	// queue.
	BridgePollInterval time.Duration `yaml:"bridge_poll_interval"`
	// AllowedOrigins lists origins permitted to call the API from a
	// browser. Empty disables CORS headers.
	AllowedOrigins []string `yaml:"allowed_origins"`
	Oracle         Oracle   `yaml:"oracle"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:           ":8080",
		RateLimitPerSecond:   50,
		RateLimitBurst:       100,
		AccrualSweepSchedule: "@daily",
		BridgePollInterval:   30 * time.Second,
	}
}

// Load reads the configuration from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads config/noorid.yaml when present, otherwise returns the
// defaults with environment overrides applied.
func LoadOrDefault() (Config, error) {
	path := filepath.Join("config", "noorid.yaml")
	if _, err := os.Stat(path); err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NOORI_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("NOORI_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("NOORI_EVENT_LOG_PATH"); v != "" {
		c.EventLogPath = v
	}
	if v := os.Getenv("NOORI_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("NOORI_ORACLE_URL"); v != "" {
		c.Oracle.URL = v
	}
	if v := os.Getenv("NOORI_ORACLE_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.BridgePollInterval <= 0 {
		return fmt.Errorf("bridge_poll_interval must be positive")
	}
	return nil
}
