// Package constants provides shared constants used throughout docsync.
// This includes timeouts, retry schedule, page sizes and worker pool bounds
// that should be consistent across the library and the CLI.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the per-request timeout for Superset API calls
	DefaultHTTPTimeout = 30 * time.Second

	// SyncTimeout is the default timeout for a whole sync run
	SyncTimeout = 30 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after an error
	ShutdownTimeout = 5 * time.Second

	// TokenRefreshLeeway is how long before JWT expiry the access token is refreshed
	TokenRefreshLeeway = 30 * time.Second
)

// Retry constants
const (
	// MaxAttempts is the number of attempts made for a transient failure
	MaxAttempts = 3

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 250 * time.Millisecond

	// MaxRetryBackoff caps a single backoff interval
	MaxRetryBackoff = 5 * time.Second
)

// Limit constants
const (
	// DefaultPageSize is the Superset dataset listing page size
	DefaultPageSize = 100

	// DefaultConcurrency is the default worker pool size for fetch and apply
	DefaultConcurrency = 4

	// MaxConcurrency is the upper bound for the worker pool size
	MaxConcurrency = 8

	// MaxErrorBodyLength truncates response bodies quoted in errors
	MaxErrorBodyLength = 512
)

// Platform identifiers
const (
	// PlatformSuperset names the platform in errors and logs
	PlatformSuperset = "superset"

	// DefaultAuthProvider is the Superset security provider used at login
	DefaultAuthProvider = "db"
)
