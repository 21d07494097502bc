package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the appauth CLI.
//
// Units: RequestTimeout is a time.Duration (e.g., 15*time.Second).
type Config struct {
	// Endpoint is the API root of the account service.
	Endpoint  string `validate:"required,url"`
	ProjectID string `validate:"required"`
	// Platform is the application id registered with the project.
	Platform string
	// VerificationRedirectURL is the page verification emails link to.
	VerificationRedirectURL string `validate:"required,url,startswith=https://"`
	DatabaseID              string
	ProfileCollectionID     string
	RequestTimeout          time.Duration `validate:"gte=0"`

	DeepLinkScheme string `validate:"required,alpha"`
	// LinkListenAddr enables the loopback link receiver when non-empty.
	LinkListenAddr string `validate:"omitempty,hostname_port"`
	// StateDBPath is the SQLite file holding unfinished signup steps.
	StateDBPath string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	// InitialLink is a deep link the program was started with.
	InitialLink string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Endpoint = "https://fra.cloud.appwrite.io/v1"
	c.Platform = "com.appauth.cli"
	c.DatabaseID = "appauth"
	c.ProfileCollectionID = "users"
	c.RequestTimeout = 15 * time.Second
	c.DeepLinkScheme = "appauth"
	c.StateDBPath = "appauth.db"
	c.LogLevel = "info"
}

// Validate reports the first settings that cannot work.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config from args (without the program name):
// defaults, then environment (with an optional .env file), then the JSON file
// given by -c/-config, then flags. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
