package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/appauth/internal/flagx"
)

var ownedFlags = []string{"-e", "-p", "-platform", "-r", "-d", "-u", "-t", "-s", "-listen", "-db", "-log", "-l"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-e string         service endpoint
//	-p string         project id
//	-platform string  application id sent as the request origin
//	-r string         verification redirect URL
//	-d string         database id of the profile collection
//	-u string         profile collection id
//	-t duration       per-request timeout
//	-s string         deep-link scheme
//	-listen string    loopback address for the link receiver
//	-db string        local state database
//	-log string       log level
//	-l string         deep link to handle at start-up
//
// Arguments not listed above are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("appauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Endpoint, "e", cfg.Endpoint, "service endpoint")
	fs.StringVar(&cfg.ProjectID, "p", cfg.ProjectID, "project id")
	fs.StringVar(&cfg.Platform, "platform", cfg.Platform, "application id")
	fs.StringVar(&cfg.VerificationRedirectURL, "r", cfg.VerificationRedirectURL, "verification redirect URL")
	fs.StringVar(&cfg.DatabaseID, "d", cfg.DatabaseID, "database id")
	fs.StringVar(&cfg.ProfileCollectionID, "u", cfg.ProfileCollectionID, "profile collection id")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.DeepLinkScheme, "s", cfg.DeepLinkScheme, "deep-link scheme")
	fs.StringVar(&cfg.LinkListenAddr, "listen", cfg.LinkListenAddr, "link receiver address")
	fs.StringVar(&cfg.StateDBPath, "db", cfg.StateDBPath, "local state database")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.InitialLink, "l", cfg.InitialLink, "deep link to open at start-up")

	if err := fs.Parse(flagx.FilterArgs(args, ownedFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
