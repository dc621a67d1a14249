// Package config loads the claims API client settings from the environment.
//
// A .env file in the working directory is loaded first (when present); variables already set in the
// process environment take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL       = "https://api.guidewire.com/claims-center/v1"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 500 * time.Millisecond

	BaseURLEnvVar = "CLAIMS_API_URL"
	TokenEnvVar   = "CLAIMS_API_TOKEN"
)

// APIConfig holds the settings used to construct a claims API client
type APIConfig struct {
	BaseURL       string        `env:"CLAIMS_API_URL,default=https://api.guidewire.com/claims-center/v1"`
	Token         string        `env:"CLAIMS_API_TOKEN"`
	Timeout       time.Duration `env:"CLAIMS_API_TIMEOUT,default=10s"` // per attempt
	MaxRetries    int           `env:"CLAIMS_API_MAX_RETRIES,default=3"`
	BackoffFactor time.Duration `env:"CLAIMS_API_BACKOFF_FACTOR,default=500ms"`
}

// Config is the full configuration used by claimsctl
type Config struct {
	APIConfig
	Environment string `env:"ENVIRONMENT,default=dev"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"perf":    true,
	"prod":    true,
	"staging": true,
}

// LoadDotEnv loads the supplied env files (default .env). Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// LoadAPIConfig reads the API settings from the process environment.
// The token is not checked here - the client reports a missing token when it is constructed.
func LoadAPIConfig() (*APIConfig, error) {
	var cfg APIConfig

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	return &cfg, nil
}

// Load loads .env and reads the environment without validating the result, so that callers can
// apply overrides (e.g. command line flags) before calling Validate.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	return &cfg, nil
}

// NewConfig loads .env, reads the environment and validates the result
func NewConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the environment name and the API settings
func (c *Config) Validate() error {
	if !validEnvs[c.Environment] {
		return fmt.Errorf("configuration validation failed: invalid environment '%s'. Valid environments: dev, test, perf, staging, prod", c.Environment)
	}

	if err := c.APIConfig.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return nil
}

// Validate checks the API settings. An empty base URL is allowed (the client falls back to DefaultBaseURL).
func (c *APIConfig) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", BaseURLEnvVar, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", BaseURLEnvVar, c.BaseURL)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries)
	}

	if c.BackoffFactor < 0 {
		return fmt.Errorf("backoff factor cannot be negative, got %v", c.BackoffFactor)
	}

	return nil
}
