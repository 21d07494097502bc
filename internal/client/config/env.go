package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "APPAUTH_"

// parseEnv overlays cfg with APPAUTH_* environment variables. Variables from
// envFile are added first without overriding the real environment; a missing
// file is not an error.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"ENDPOINT":              &cfg.Endpoint,
		"PROJECT_ID":            &cfg.ProjectID,
		"PLATFORM":              &cfg.Platform,
		"REDIRECT_URL":          &cfg.VerificationRedirectURL,
		"DATABASE_ID":           &cfg.DatabaseID,
		"PROFILE_COLLECTION_ID": &cfg.ProfileCollectionID,
		"DEEPLINK_SCHEME":       &cfg.DeepLinkScheme,
		"LINK_LISTEN_ADDR":      &cfg.LinkListenAddr,
		"STATE_DB":              &cfg.StateDBPath,
		"LOG_LEVEL":             &cfg.LogLevel,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + k); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}
