package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"12"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	TronGridURL     string  `envconfig:"TRONGRID_URL" default:"https://api.trongrid.io"`
	TronGridAPIKey  string  `envconfig:"TRONGRID_API_KEY" default:""`
	TronGridTimeout int     `envconfig:"TRONGRID_TIMEOUT" default:"10"`
	TronGridRPS     float64 `envconfig:"TRONGRID_RPS" default:"5"`

	PaymentPollInterval    int `envconfig:"PAYMENT_POLL_INTERVAL" default:"30"`
	PaymentPollConcurrency int `envconfig:"PAYMENT_POLL_CONCURRENCY" default:"4"`
	PaymentExpiryHours     int `envconfig:"PAYMENT_EXPIRY_HOURS" default:"72"`

	DefaultCompanyName string `envconfig:"DEFAULT_COMPANY_NAME" default:"Billdesk"`
}

// Load reads configuration from environment variables into a Config struct.
// Variables from envFiles are applied first without overriding variables
// already set in the environment; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.PaymentPollInterval <= 0:
		return errors.New("PAYMENT_POLL_INTERVAL must be positive")
	case c.PaymentPollConcurrency <= 0:
		return errors.New("PAYMENT_POLL_CONCURRENCY must be positive")
	case c.PaymentExpiryHours < 0:
		return errors.New("PAYMENT_EXPIRY_HOURS must not be negative")
	case c.TronGridTimeout <= 0:
		return errors.New("TRONGRID_TIMEOUT must be positive")
	}
	return nil
}

// PollInterval is PAYMENT_POLL_INTERVAL as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PaymentPollInterval) * time.Second
}

// PaymentExpiry is PAYMENT_EXPIRY_HOURS as a duration; zero disables expiry.
func (c *Config) PaymentExpiry() time.Duration {
	return time.Duration(c.PaymentExpiryHours) * time.Hour
}

// TronGridTimeoutDuration is TRONGRID_TIMEOUT as a duration.
func (c *Config) TronGridTimeoutDuration() time.Duration {
	return time.Duration(c.TronGridTimeout) * time.Second
}
