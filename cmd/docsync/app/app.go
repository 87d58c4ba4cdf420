// Package app provides the application context and dependency management
// for the docsync CLI. It centralizes configuration, logging and the
// construction of Superset-backed syncers, so commands only depend on
// application.Application.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/docsync"
	"github.com/agentstation/docsync/internal/cmd/application"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/superset"
)

// App represents the docsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// newSyncer builds the syncer for a connection; replaced in tests.
	newSyncer func(ctx context.Context, conn application.Connection) (docsync.Syncer, error)
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the environment and the
// default config file; options can replace it.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}
	app.newSyncer = app.supersetSyncer

	// Load configuration
	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	// Initialize logger
	logger := NewLogger(config)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Connection returns the Superset connection settings from configuration.
func (a *App) Connection() application.Connection {
	return a.config.Connection()
}

// Syncer logs in to Superset and returns a Syncer bound to the session.
func (a *App) Syncer(ctx context.Context, conn application.Connection) (docsync.Syncer, error) {
	return a.newSyncer(logging.WithLogger(ctx, a.logger), conn)
}

func (a *App) supersetSyncer(ctx context.Context, conn application.Connection) (docsync.Syncer, error) {
	if conn.URL == "" {
		return nil, errors.NewConfigError("superset", "url is required (--superset-url or SUPERSET_URL)", nil)
	}
	if conn.AccessToken == "" && (conn.Username == "" || conn.Password == "") {
		return nil, errors.NewConfigError("superset", "username and password are required (SUPERSET_USERNAME, SUPERSET_PASSWORD)", nil)
	}

	opts := []superset.Option{
		superset.WithAuthProvider(conn.AuthProvider),
		superset.WithCSRF(conn.CSRF),
	}
	if conn.AccessToken != "" {
		opts = append(opts, superset.WithAccessToken(conn.AccessToken))
	} else {
		opts = append(opts, superset.WithCredentials(conn.Username, conn.Password))
	}
	if conn.RateLimit > 0 {
		opts = append(opts, superset.WithRateLimit(conn.RateLimit, conn.RateBurst))
	}

	client, err := superset.New(ctx, conn.URL, opts...)
	if err != nil {
		return nil, err
	}
	return docsync.New(client)
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return ctx.Err()
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewConfigError("app", "config must not be nil", nil)
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithSyncerFunc replaces how syncers are built (useful for testing).
func WithSyncerFunc(fn func(ctx context.Context, conn application.Connection) (docsync.Syncer, error)) Option {
	return func(a *App) error {
		a.newSyncer = fn
		return nil
	}
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)
