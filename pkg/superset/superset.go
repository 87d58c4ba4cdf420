// Package superset is a client for the Apache Superset REST API (v1)
// covering what docsync needs: authentication, dataset listing, column
// lookup and description updates.
package superset

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// APIPath is the prefix of every REST endpoint.
const APIPath = "/api/v1"

// Client is an authenticated Superset session. It is safe for concurrent
// use; writes to the same dataset are serialized.
type Client struct {
	baseURL  string
	api      *transport.Client
	session  *session
	pageSize int
	locks    datasetLocks
}

// New creates a client for the Superset instance at baseURL and logs in.
// Rejected credentials return an *errors.AuthenticationError.
func New(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.NewValidationError("superset_url", baseURL, "Superset URL is required")
	}

	hc, err := withCookieJar(o.httpClient)
	if err != nil {
		return nil, err
	}

	s := &session{
		username: o.username,
		password: o.password,
		provider: o.provider,
		csrf:     o.csrf,
		leeway:   o.leeway,
		now:      o.now,
	}
	auth := transport.Chain{
		&transport.BearerAuth{Source: s},
		&transport.HeaderAuth{Header: "X-CSRFToken", Value: s.CSRF},
		&transport.HeaderAuth{Header: "Referer", Value: func() string {
			if s.CSRF() == "" {
				return ""
			}
			return baseURL
		}},
	}
	s.api = transport.New(baseURL+APIPath,
		transport.WithHTTPClient(hc),
		transport.WithAuthenticator(auth),
		transport.WithRateLimit(o.rps, o.burst),
		transport.WithRetryPolicy(o.retry),
		transport.WithUserAgent("docsync"),
	)

	c := &Client{
		baseURL:  baseURL,
		api:      s.api,
		session:  s,
		pageSize: o.pageSize,
	}

	if o.accessToken != "" {
		s.useToken(o.accessToken)
		if o.csrf {
			if err := s.fetchCSRF(ctx); err != nil {
				return nil, err
			}
		}
	} else if err := s.login(ctx); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("url", baseURL).Msg("Connected to Superset")
	return c, nil
}

// BaseURL returns the Superset instance URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func withCookieJar(hc *http.Client) (*http.Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	if hc.Jar != nil {
		return hc, nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.WrapResource("create", "cookie jar", "", err)
	}
	clone := *hc
	clone.Jar = jar
	return &clone, nil
}

// call performs an authenticated request. A 401 triggers one token
// refresh and a single replay.
func (c *Client) call(ctx context.Context, r *transport.Request, out any) error {
	gen := c.session.Generation()
	err := c.api.DoJSON(ctx, r, out)
	if !isUnauthorized(err) {
		return err
	}

	logging.Ctx(ctx).Debug().Str("path", r.Path).Msg("Access token rejected, refreshing")
	if rerr := c.session.RefreshAfter(ctx, gen); rerr != nil {
		return rerr
	}
	return c.api.DoJSON(ctx, r, out)
}

func isUnauthorized(err error) bool {
	var status *transport.StatusError
	return errors.As(err, &status) && status.StatusCode == http.StatusUnauthorized
}

// apiError maps transport failures onto domain errors for a resource.
func apiError(resource, id string, err error) error {
	if err == nil {
		return nil
	}
	var status *transport.StatusError
	if !errors.As(err, &status) {
		return err
	}
	switch status.StatusCode {
	case http.StatusNotFound:
		return errors.NewNotFoundError(resource, id)
	case http.StatusUnauthorized:
		return &errors.AuthenticationError{
			Platform:   constants.PlatformSuperset,
			Method:     "token",
			StatusCode: status.StatusCode,
			Message:    status.Message(),
			Err:        err,
		}
	}
	return &errors.APIError{
		Platform:   constants.PlatformSuperset,
		StatusCode: status.StatusCode,
		Message:    status.Message(),
		Endpoint:   status.Endpoint,
		Err:        err,
	}
}
