package superset

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// session holds the access/refresh token pair shared by all workers.
// Refreshes are serialized by mu; generation increments on each new
// access token so concurrent 401s trigger a single refresh.
type session struct {
	api      *transport.Client
	username string
	password string
	provider string
	csrf     bool
	leeway   time.Duration
	now      func() time.Time

	mu         sync.Mutex
	access     string
	refresh    string
	expiry     time.Time
	csrfToken  string
	generation uint64
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Provider string `json:"provider"`
	Refresh  bool   `json:"refresh"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Token implements transport.TokenSource, refreshing the access token
// shortly before its exp claim.
func (s *session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh != "" && !s.expiry.IsZero() && !s.now().Add(s.leeway).Before(s.expiry) {
		logging.Ctx(ctx).Debug().Time("expiry", s.expiry).Msg("Access token about to expire, refreshing")
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return s.access, nil
}

// CSRF returns the current CSRF token, if any.
func (s *session) CSRF() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// Generation identifies the current access token.
func (s *session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// RefreshAfter refreshes the access token unless another caller already
// did so since gen was observed.
func (s *session) RefreshAfter(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *session) useToken(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAccessLocked(access)
}

func (s *session) login(ctx context.Context) error {
	if s.username == "" {
		return errors.NewAuthenticationError(constants.PlatformSuperset, "password", "username is required", nil)
	}

	var out tokenResponse
	err := s.api.DoJSON(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/security/login",
		Body: loginRequest{
			Username: s.username,
			Password: s.password,
			Provider: s.provider,
			Refresh:  true,
		},
		SkipAuth: true,
	}, &out)
	if err != nil {
		return authError("password", err)
	}
	if out.AccessToken == "" {
		return errors.NewAuthenticationError(constants.PlatformSuperset, "password", "login response carried no access token", nil)
	}

	s.mu.Lock()
	s.setAccessLocked(out.AccessToken)
	s.refresh = out.RefreshToken
	s.mu.Unlock()

	logging.Ctx(ctx).Debug().Str("username", s.username).Msg("Logged in")

	if s.csrf {
		return s.fetchCSRF(ctx)
	}
	return nil
}

func (s *session) fetchCSRF(ctx context.Context) error {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()

	var out struct {
		Result string `json:"result"`
	}
	err := s.api.DoJSON(ctx, &transport.Request{
		Method:   http.MethodGet,
		Path:     "/security/csrf_token/",
		Header:   http.Header{"Authorization": []string{"Bearer " + access}},
		SkipAuth: true,
	}, &out)
	if err != nil {
		return authError("csrf", err)
	}

	s.mu.Lock()
	s.csrfToken = out.Result
	s.mu.Unlock()
	return nil
}

func (s *session) refreshLocked(ctx context.Context) error {
	if s.refresh == "" {
		return errors.NewAuthenticationError(constants.PlatformSuperset, "refresh", "access token expired and no refresh token is available", nil)
	}

	var out tokenResponse
	err := s.api.DoJSON(ctx, &transport.Request{
		Method:   http.MethodPost,
		Path:     "/security/refresh",
		Header:   http.Header{"Authorization": []string{"Bearer " + s.refresh}},
		SkipAuth: true,
	}, &out)
	if err != nil {
		return authError("refresh", err)
	}
	if out.AccessToken == "" {
		return errors.NewAuthenticationError(constants.PlatformSuperset, "refresh", "refresh response carried no access token", nil)
	}

	s.setAccessLocked(out.AccessToken)
	logging.Ctx(ctx).Debug().Time("expiry", s.expiry).Msg("Refreshed access token")
	return nil
}

func (s *session) setAccessLocked(access string) {
	s.access = access
	s.expiry = tokenExpiry(access)
	s.generation++
}

// tokenExpiry reads the exp claim without verifying the signature. Tokens
// that are not JWTs or carry no exp report the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// authError converts a failed login, refresh or CSRF call. Transient
// failures and cancellation pass through unchanged.
func authError(method string, err error) error {
	var status *transport.StatusError
	if !errors.As(err, &status) {
		return err
	}
	return &errors.AuthenticationError{
		Platform:   constants.PlatformSuperset,
		Method:     method,
		StatusCode: status.StatusCode,
		Message:    status.Message(),
		Err:        err,
	}
}
