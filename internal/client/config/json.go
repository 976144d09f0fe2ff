package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/dealerclient/internal/flagx"
	"github.com/dmitrijs2005/dealerclient/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "3s" or integer nanoseconds. Zero values leave the
// current setting untouched.
type JsonConfig struct {
	ServerBaseURL     string         `json:"server_base_url"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	MaxAttempts       int            `json:"max_attempts"`
	RetryBaseDelay    timex.Duration `json:"retry_base_delay"`
	RequestsPerSecond float64        `json:"requests_per_second"`
	RefreshSkew       timex.Duration `json:"refresh_skew"`
	DatabasePath      string         `json:"database_path"`
	SessionPassphrase string         `json:"session_passphrase"`
	LogLevel          string         `json:"log_level"`
}

// parseJSON overlays cfg with the JSON file given by -c or -config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxAttempts != 0 {
		cfg.MaxAttempts = jc.MaxAttempts
	}
	if jc.RetryBaseDelay.Duration != 0 {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = jc.RequestsPerSecond
	}
	if jc.RefreshSkew.Duration != 0 {
		cfg.RefreshSkew = jc.RefreshSkew.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SessionPassphrase != "" {
		cfg.SessionPassphrase = jc.SessionPassphrase
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}
