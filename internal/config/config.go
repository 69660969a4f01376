// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// PublicURL is the externally reachable base URL, used to build the
	// webhook callback address handed to the compute provider.
	PublicURL string `yaml:"public_url"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	// Enabled switches the progress bus from in-memory to the Redis broker.
	// Required when more than one server instance runs behind a balancer.
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProviderConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

type StorageConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Bucket     string        `yaml:"bucket"`
	ServiceKey string        `yaml:"service_key"`
	SignTTL    time.Duration `yaml:"sign_ttl"`
}

type SweepConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
	Workers   int           `yaml:"workers"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Sweep    SweepConfig    `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (a local .env is honored when present) and applies defaults.
// Provider credentials are deliberately NOT validated here: a missing key is
// a per-trigger failure (error_type=missing_config), not a boot failure.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// env overrides for secrets
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("STORAGE_SERVICE_KEY"); v != "" {
		cfg.Storage.ServiceKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Provider.WebhookSecret = v
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Provider.SubmitTimeout <= 0 {
		cfg.Provider.SubmitTimeout = 30 * time.Second
	}
	if cfg.Storage.SignTTL <= 0 {
		cfg.Storage.SignTTL = time.Hour
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.BatchSize <= 0 {
		cfg.Sweep.BatchSize = 10
	}
	if cfg.Sweep.Workers <= 0 {
		cfg.Sweep.Workers = 4
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Enabled && cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required when redis.enabled")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
