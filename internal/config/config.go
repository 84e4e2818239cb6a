// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	DefaultPricingExpiryCron = "15 0 * * *"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver" toml:"driver"`
	Filename string `yaml:"filename" toml:"filename"`
}

type BookingConfig struct {
	Currency       string `yaml:"currency" toml:"currency"`
	DefaultRegion  string `yaml:"default_region" toml:"default_region"`
	LockBackend    string `yaml:"lock_backend" toml:"lock_backend"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds" toml:"lock_ttl_seconds"`
}

type SchedulerConfig struct {
	PricingExpiryCron string `yaml:"pricing_expiry_cron" toml:"pricing_expiry_cron"`
}

type RateLimitConfig struct {
	WritesPerMinute int  `yaml:"writes_per_minute" toml:"writes_per_minute"`
	TrustProxy      bool `yaml:"trust_proxy" toml:"trust_proxy"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	DB       int    `yaml:"db" toml:"db"`
	Password string `yaml:"-" toml:"-"` // Loaded from environment
}

type EventsConfig struct {
	Exchange string `yaml:"exchange" toml:"exchange"`
	AMQPURL  string `yaml:"-" toml:"-"` // Loaded from environment
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled" toml:"enabled"`
	Region          string `yaml:"region" toml:"region"`
	Sender          string `yaml:"sender" toml:"sender"`
	AccessKeyID     string `yaml:"-" toml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-" toml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name                   string `yaml:"name" toml:"name"`
		Environment            string `yaml:"environment" toml:"environment"`
		Port                   int    `yaml:"port" toml:"port"`
		LogLevel               string `yaml:"log_level" toml:"log_level"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
	} `yaml:"app" toml:"app"`

	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Booking   BookingConfig   `yaml:"booking" toml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler" toml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Events    EventsConfig    `yaml:"events" toml:"events"`
	Email     EmailConfig     `yaml:"email" toml:"email"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics" toml:"enable_metrics"`
	} `yaml:"features" toml:"features"`
}

// Load loads .env beside the config file, then the YAML or TOML config itself
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(configPath))
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Events.AMQPURL = os.Getenv("AMQP_URL")
	cfg.Email.AccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes raw config bytes, choosing TOML for a ".toml" extension and
// YAML otherwise, and fills defaults. It does not validate.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	if strings.EqualFold(ext, ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ShutdownTimeoutSeconds == 0 {
		c.App.ShutdownTimeoutSeconds = 10
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "USD"
	}
	if c.Booking.DefaultRegion == "" {
		c.Booking.DefaultRegion = "US"
	}
	if c.Booking.LockBackend == "" {
		c.Booking.LockBackend = LockBackendMemory
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 30
	}
	if c.RateLimit.WritesPerMinute == 0 {
		c.RateLimit.WritesPerMinute = 120
	}
	if c.Scheduler.PricingExpiryCron == "" {
		c.Scheduler.PricingExpiryCron = DefaultPricingExpiryCron
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "reservations"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Booking.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis lock backend")
		}
	default:
		return fmt.Errorf("unsupported lock backend: %s", c.Booking.LockBackend)
	}
	if c.RateLimit.WritesPerMinute < 0 {
		return fmt.Errorf("writes_per_minute must not be negative")
	}
	if c.Booking.LockTTLSeconds < 0 {
		return fmt.Errorf("lock_ttl_seconds must not be negative")
	}
	if len(c.Booking.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code: %q", c.Booking.Currency)
	}

	if _, err := cron.ParseStandard(c.Scheduler.PricingExpiryCron); err != nil {
		return fmt.Errorf("invalid pricing_expiry_cron %q: %w", c.Scheduler.PricingExpiryCron, err)
	}

	if c.Email.Enabled && c.Email.Sender == "" {
		return fmt.Errorf("email sender is required when email is enabled")
	}
	if c.Email.Enabled && c.Email.Region == "" {
		return fmt.Errorf("email region is required when email is enabled")
	}

	return nil
}
