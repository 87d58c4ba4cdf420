package superset

import (
	"net/http"
	"time"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/constants"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	username    string
	password    string
	provider    string
	accessToken string
	csrf        bool
	httpClient  *http.Client
	rps         float64
	burst       int
	retry       transport.RetryPolicy
	pageSize    int
	leeway      time.Duration
	now         func() time.Time
}

func defaultOptions() *options {
	return &options{
		provider: constants.DefaultAuthProvider,
		retry:    transport.DefaultRetryPolicy(),
		pageSize: constants.DefaultPageSize,
		leeway:   constants.TokenRefreshLeeway,
		now:      time.Now,
	}
}

// WithCredentials sets the username and password used to log in.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithAuthProvider sets the login provider ("db" or "ldap").
func WithAuthProvider(provider string) Option {
	return func(o *options) {
		if provider != "" {
			o.provider = provider
		}
	}
}

// WithAccessToken uses a pre-issued access token instead of logging in.
// Such sessions cannot be refreshed.
func WithAccessToken(token string) Option {
	return func(o *options) {
		o.accessToken = token
	}
}

// WithCSRF fetches a CSRF token after login and sends it on every request.
func WithCSRF(enabled bool) Option {
	return func(o *options) {
		o.csrf = enabled
	}
}

// WithHTTPClient sets the underlying HTTP client. A cookie jar is added
// when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithRateLimit bounds requests to rps per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithRetryPolicy sets the backoff for transient failures.
func WithRetryPolicy(p transport.RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithPageSize sets the dataset listing page size.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
