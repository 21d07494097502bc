// Package config loads runtime configuration for the appauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. APPAUTH_* environment variables, with an optional .env file.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags (see parseFlags).
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "15s" or
// integer nanoseconds:
//
//	{
//	  "endpoint": "https://fra.cloud.appwrite.io/v1",
//	  "project_id": "6848496900278d29c721",
//	  "verification_redirect_url": "https://example.com/verify",
//	  "request_timeout": "15s",
//	  "link_listen_addr": "127.0.0.1:8765"
//	}
//
// The merged result is checked with (*Config).Validate before it is returned.
package config
