package devapi

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/flagx"
)

// Config holds runtime settings for the development API.
//
// Fields:
//   - Addr: bind address of the HTTP listener.
//   - SecretKey: HMAC secret for signing access tokens (HS256).
//   - AccessTokenTTL / RefreshTokenTTL: token lifetimes. A short access TTL
//     lets clients exercise the refresh path.
type Config struct {
	Addr            string
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LogLevel        string
}

// LoadDefaults populates Config with development defaults. They are not
// meant for anything but local testing.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "devapi-secret"
	c.AccessTokenTTL = 5 * time.Minute
	c.RefreshTokenTTL = 24 * time.Hour
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then DEVAPI_* environment variables, then
// the flags in args:
//
//	-a string     bind address
//	-s string     JWT secret
//	-t duration   access token TTL
//	-r duration   refresh token TTL
func LoadConfig(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if lookupEnv != nil {
		if v, ok := lookupEnv("DEVAPI_ADDR"); ok && v != "" {
			cfg.Addr = v
		}
		if v, ok := lookupEnv("DEVAPI_SECRET"); ok && v != "" {
			cfg.SecretKey = v
		}
		if v, ok := lookupEnv("DEVAPI_LOG_LEVEL"); ok && v != "" {
			cfg.LogLevel = v
		}
		for key, dst := range map[string]*time.Duration{
			"DEVAPI_ACCESS_TTL":  &cfg.AccessTokenTTL,
			"DEVAPI_REFRESH_TTL": &cfg.RefreshTokenTTL,
		} {
			v, ok := lookupEnv(key)
			if !ok || v == "" {
				continue
			}
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	fs := flag.NewFlagSet("devapi", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.AccessTokenTTL, "t", cfg.AccessTokenTTL, "access token validity")
	fs.DurationVar(&cfg.RefreshTokenTTL, "r", cfg.RefreshTokenTTL, "refresh token validity")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-r"})); err != nil {
		return nil, err
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is empty")
	}
	return cfg, nil
}
