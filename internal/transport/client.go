// Package transport provides the HTTP plumbing shared by platform clients:
// authentication, JSON encoding, client-side rate limiting, status
// classification and bounded retries of transient failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	baseURL   string
	http      *http.Client
	auth      Authenticator
	limiter   *rate.Limiter
	retry     RetryPolicy
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAuthenticator sets the authenticator applied to every request.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithRateLimit bounds outgoing requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new transport client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &NoAuth{},
		retry:     DefaultRetryPolicy(),
		userAgent: "docsync",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs the request with retries. It returns the response for 2xx
// statuses, a *StatusError for other non-retryable statuses, and a
// *errors.TransientNetworkError once retries are exhausted.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	var resp *Response
	_, err := Retry(ctx, c.retry, func(ctx context.Context) error {
		var err error
		resp, err = c.send(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DoJSON performs the request and decodes a successful body into out.
func (c *Client) DoJSON(ctx context.Context, r *Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, out)
}

// send performs exactly one attempt.
func (c *Client) send(ctx context.Context, r *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := c.baseURL + r.Path
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, errors.WrapParse("json", "request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, endpoint, body)
	if err != nil {
		return nil, errors.WrapResource("create", "request", r.Method+" "+r.Path, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !r.SkipAuth {
		if err := c.auth.Apply(ctx, req); err != nil {
			return nil, err
		}
	}

	logging.Ctx(ctx).Debug().
		Str("method", r.Method).
		Str("path", r.Path).
		Msg("Sending request")

	httpResp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &errors.TransientNetworkError{
			Method:   r.Method,
			Endpoint: r.Path,
			Err:      err,
		}
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			logging.Ctx(ctx).Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &errors.TransientNetworkError{
			Method:     r.Method,
			Endpoint:   r.Path,
			StatusCode: httpResp.StatusCode,
			Err:        err,
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}

	logging.Ctx(ctx).Debug().
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Msg("Request finished")

	if err := classify(r.Method, r.Path, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
