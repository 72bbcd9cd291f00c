package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds the offline-first client configuration.
type ClientConfig struct {
	DataPath     string
	Remote       RemoteConfig
	Connectivity ConnectivityConfig
	Sync         SyncConfig
	Logger       LoggerConfig
}

// RemoteConfig describes the authoritative catalogue server.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ConnectivityConfig controls the reachability probe.
type ConnectivityConfig struct {
	ProbeURL      string // defaults to <BaseURL>/health
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// SyncConfig controls the periodic reconciliation schedule.
type SyncConfig struct {
	Interval    time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxRetries  int
}

// clientDefaults mirrors the keys read by LoadClient.
var clientDefaults = map[string]interface{}{
	"data_path":                   "catalog.db",
	"remote.base_url":             "http://localhost:8080",
	"remote.api_key":              "",
	"remote.timeout":              10 * time.Second,
	"connectivity.probe_url":      "",
	"connectivity.probe_interval": 5 * time.Second,
	"connectivity.probe_timeout":  3 * time.Second,
	"sync.interval":               15 * time.Minute,
	"sync.backoff_base":           10 * time.Second,
	"sync.backoff_max":            5 * time.Minute,
	"sync.max_retries":            5,
	"log.level":                   "warn",
	"log.format":                  "console",
	"log.file":                    "",
	"log.max_size_mb":             10,
	"log.max_backups":             3,
	"log.max_age_days":            14,
}

// LoadClient reads client configuration from an optional file and CATALOG_* environment variables.
// When path is empty, catalog.{yaml,toml,json} is searched in the working directory and
// $HOME/.config/catalog; a missing file is not an error.
func LoadClient(path string) (*ClientConfig, error) {
	v := viper.New()

	for key, value := range clientDefaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("catalog")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/catalog")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &ClientConfig{
		DataPath: v.GetString("data_path"),
		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(v.GetString("remote.base_url"), "/"),
			APIKey:  v.GetString("remote.api_key"),
			Timeout: v.GetDuration("remote.timeout"),
		},
		Connectivity: ConnectivityConfig{
			ProbeURL:      v.GetString("connectivity.probe_url"),
			ProbeInterval: v.GetDuration("connectivity.probe_interval"),
			ProbeTimeout:  v.GetDuration("connectivity.probe_timeout"),
		},
		Sync: SyncConfig{
			Interval:    v.GetDuration("sync.interval"),
			BackoffBase: v.GetDuration("sync.backoff_base"),
			BackoffMax:  v.GetDuration("sync.backoff_max"),
			MaxRetries:  v.GetInt("sync.max_retries"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}

	if cfg.Connectivity.ProbeURL == "" {
		cfg.Connectivity.ProbeURL = cfg.Remote.BaseURL + "/health"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data path is required")
	}

	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid remote base URL: %q", c.Remote.BaseURL)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}

	if c.Connectivity.ProbeInterval <= 0 || c.Connectivity.ProbeTimeout <= 0 {
		return fmt.Errorf("connectivity probe interval and timeout must be positive")
	}

	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}

	if c.Sync.BackoffBase <= 0 || c.Sync.BackoffMax < c.Sync.BackoffBase {
		return fmt.Errorf("sync backoff max must be at least backoff base")
	}

	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync max retries cannot be negative")
	}

	return c.Logger.Validate()
}
