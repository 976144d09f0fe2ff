package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvServerURL         = "DEALER_SERVER_URL"
	EnvRequestTimeout    = "DEALER_REQUEST_TIMEOUT"
	EnvMaxAttempts       = "DEALER_MAX_ATTEMPTS"
	EnvRetryBaseDelay    = "DEALER_RETRY_BASE_DELAY"
	EnvRequestsPerSecond = "DEALER_REQUESTS_PER_SECOND"
	EnvRefreshSkew       = "DEALER_REFRESH_SKEW"
	EnvDatabasePath      = "DEALER_DB_PATH"
	EnvSessionPassphrase = "DEALER_SESSION_PASSPHRASE"
	EnvLogLevel          = "DEALER_LOG_LEVEL"
)

// EnvWithDotenv returns a lookup over the process environment that falls
// back to the variables of the dotenv file at path. A missing file is not an
// error.
func EnvWithDotenv(path string) (func(string) (string, bool), error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		vars = map[string]string{}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(EnvServerURL, &cfg.ServerBaseURL)
	str(EnvDatabasePath, &cfg.DatabasePath)
	str(EnvSessionPassphrase, &cfg.SessionPassphrase)
	str(EnvLogLevel, &cfg.LogLevel)

	if err := dur(EnvRequestTimeout, &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := dur(EnvRetryBaseDelay, &cfg.RetryBaseDelay); err != nil {
		return err
	}
	if err := dur(EnvRefreshSkew, &cfg.RefreshSkew); err != nil {
		return err
	}

	if v, ok := lookup(EnvMaxAttempts); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAttempts, err)
		}
		cfg.MaxAttempts = n
	}
	if v, ok := lookup(EnvRequestsPerSecond); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestsPerSecond, err)
		}
		cfg.RequestsPerSecond = f
	}
	return nil
}
