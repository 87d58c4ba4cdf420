package transport

import (
	"context"
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(ctx context.Context, req *http.Request) error
}

// TokenSource supplies a bearer token. Implementations must be safe for
// concurrent use; the Superset session refreshes its token behind a mutex.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ context.Context, _ *http.Request) error {
	return nil
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct {
	Source TokenSource
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(ctx context.Context, req *http.Request) error {
	if a.Source == nil {
		return nil
	}
	token, err := a.Source.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// HeaderAuth implements custom header authentication, e.g. X-CSRFToken.
type HeaderAuth struct {
	Header string
	Value  func() string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(_ context.Context, req *http.Request) error {
	if a.Value == nil {
		return nil
	}
	if v := a.Value(); v != "" {
		req.Header.Set(a.Header, v)
	}
	return nil
}

// Chain applies several authenticators in order.
type Chain []Authenticator

// Apply implements the Authenticator interface for Chain.
func (c Chain) Apply(ctx context.Context, req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Apply(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
