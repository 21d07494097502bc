package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/appauth/internal/flagx"
	"github.com/dmitrijs2005/appauth/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration, so the file may hold "15s" or integer nanoseconds.
type JSONConfig struct {
	Endpoint                string          `json:"endpoint"`
	ProjectID               string          `json:"project_id"`
	Platform                string          `json:"platform"`
	VerificationRedirectURL string          `json:"verification_redirect_url"`
	DatabaseID              string          `json:"database_id"`
	ProfileCollectionID     string          `json:"profile_collection_id"`
	RequestTimeout          *timex.Duration `json:"request_timeout"`
	DeepLinkScheme          string          `json:"deep_link_scheme"`
	LinkListenAddr          string          `json:"link_listen_addr"`
	StateDBPath             string          `json:"state_db_path"`
	LogLevel                string          `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c/-config in args. Keys
// absent from the file keep their current value.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Endpoint, jc.Endpoint)
	set(&cfg.ProjectID, jc.ProjectID)
	set(&cfg.Platform, jc.Platform)
	set(&cfg.VerificationRedirectURL, jc.VerificationRedirectURL)
	set(&cfg.DatabaseID, jc.DatabaseID)
	set(&cfg.ProfileCollectionID, jc.ProfileCollectionID)
	set(&cfg.DeepLinkScheme, jc.DeepLinkScheme)
	set(&cfg.LinkListenAddr, jc.LinkListenAddr)
	set(&cfg.StateDBPath, jc.StateDBPath)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
