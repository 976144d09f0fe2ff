// Package config loads runtime configuration for the dealer client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables DEALER_*, with a .env file as fallback.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string     base URL of the storefront API
//	-t duration   per-attempt request timeout
//	-r int        max attempts per request
//	-d string     path of the local database
//	-l string     log level
//
// # JSON schema
//
//	{
//	  "server_base_url": "https://dealer.example.vn",
//	  "request_timeout": "15s",
//	  "max_attempts": 3,
//	  "retry_base_delay": "300ms",
//	  "requests_per_second": 5,
//	  "refresh_skew": "30s",
//	  "database_path": "dealerclient.db",
//	  "session_passphrase": "",
//	  "log_level": "info"
//	}
package config
