package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds harvester configuration.
type Config struct {
	BaseURL           string
	TokenURL          string
	CountrySite       string
	DataDir           string
	SecretsDir        string
	Workers           int
	Timeout           time.Duration
	OffsetStep        int
	MaxOffset         int
	RequestsPerSecond float64
	FailFast          bool
	PerItemFiles      bool
	OutputFormat      string // csv or jsonl
	MetricsAddr       string
	Verbose           bool
}

// DefaultConfig returns conservative defaults for the public marketplace API.
// MaxOffset defaults to the unauthenticated pagination cap; registered apps
// may raise it to 4000.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.mercadolibre.com",
		TokenURL:          "https://api.mercadolibre.com/oauth/token",
		CountrySite:       "MCO",
		DataDir:           "data",
		SecretsDir:        "secrets",
		Workers:           6,
		Timeout:           10 * time.Second,
		OffsetStep:        50,
		MaxOffset:         1000,
		RequestsPerSecond: 0,
		FailFast:          false,
		PerItemFiles:      false,
		OutputFormat:      "csv",
		MetricsAddr:       "",
		Verbose:           false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"base URL": c.BaseURL, "token URL": c.TokenURL} {
		if raw == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if c.CountrySite == "" {
		return fmt.Errorf("country site cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.SecretsDir == "" {
		return fmt.Errorf("secrets dir cannot be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OffsetStep <= 0 {
		return fmt.Errorf("offset step must be positive")
	}
	if c.MaxOffset < 0 {
		return fmt.Errorf("max offset cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "jsonl" {
		return fmt.Errorf("output format must be csv or jsonl")
	}

	return nil
}

// EnvString reads an environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}
