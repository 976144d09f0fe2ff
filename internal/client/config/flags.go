package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/dealerclient/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     base URL of the storefront API
//	-t duration   per-attempt request timeout
//	-r int        max attempts per request
//	-d string     path of the local database
//	-l string     log level
//
// Only these flags are taken from args (see flagx.FilterArgs).
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-r", "-d", "-l"})

	fs := flag.NewFlagSet("dealerclient", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the storefront API")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-attempt request timeout")
	fs.IntVar(&cfg.MaxAttempts, "r", cfg.MaxAttempts, "max attempts per request")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	return fs.Parse(args)
}
