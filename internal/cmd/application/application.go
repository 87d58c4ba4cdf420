// Package application defines the application context commands depend on.
// The App struct from cmd/docsync/app implements Application; commands
// accept the interface so they can be tested with Mock.
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/docsync"
)

// Connection describes how to reach and authenticate to Superset.
type Connection struct {
	URL          string
	Username     string
	Password     string
	AuthProvider string
	AccessToken  string
	CSRF         bool
	RateLimit    float64
	RateBurst    int
}

// Application is the set of dependencies a command needs.
type Application interface {
	// Connection returns the Superset connection settings from config
	// files and the environment. Commands overlay their flags on it.
	Connection() Connection

	// Syncer logs in to Superset and returns a Syncer bound to it.
	Syncer(ctx context.Context, conn Connection) (docsync.Syncer, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
