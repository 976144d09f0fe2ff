package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the dealer client.
type Config struct {
	ServerBaseURL     string
	RequestTimeout    time.Duration
	MaxAttempts       int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
	RefreshSkew       time.Duration
	DatabasePath      string
	SessionPassphrase string
	LogLevel          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.MaxAttempts = 3
	c.RetryBaseDelay = 300 * time.Millisecond
	c.RequestsPerSecond = 0
	c.RefreshSkew = 30 * time.Second
	c.DatabasePath = "dealerclient.db"
	c.SessionPassphrase = ""
	c.LogLevel = "warn"
}

// Validate reports settings the client cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.ServerBaseURL == "":
		return fmt.Errorf("server base url is empty")
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	case c.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	case c.RequestsPerSecond < 0:
		return fmt.Errorf("requests per second must not be negative")
	case c.DatabasePath == "":
		return fmt.Errorf("database path is empty")
	}
	return nil
}

// Load builds a Config from defaults, then the JSON file named by -c/-config,
// then the environment (including a .env file in the working directory),
// then the flags in args. Later sources take precedence.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads the configuration of the running process.
func LoadConfig() (*Config, error) {
	lookup, err := EnvWithDotenv(".env")
	if err != nil {
		return nil, err
	}
	return Load(os.Args[1:], lookup)
}
