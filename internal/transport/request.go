package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// Request describes one API call. Body, when set, is JSON encoded.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     any
	Header   http.Header
	SkipAuth bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned for non-2xx responses that are not retryable
// (4xx other than 429). Callers map it onto domain errors.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, truncate(e.Body))
}

// Message extracts the "message" or "msg" field Superset puts in error
// bodies, falling back to the raw body.
func (e *StatusError) Message() string {
	var body struct {
		Message any    `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil {
		if body.Msg != "" {
			return body.Msg
		}
		switch m := body.Message.(type) {
		case string:
			return m
		case nil:
		default:
			if b, err := json.Marshal(m); err == nil {
				return string(b)
			}
		}
	}
	return truncate(e.Body)
}

// DecodeResponse decodes a JSON response body into the target structure.
func DecodeResponse(resp *Response, target any) error {
	if target == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// classify turns a status code into nil, a TransientNetworkError or a StatusError.
func classify(method, endpoint string, resp *Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &errors.TransientNetworkError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    truncate(resp.Body),
		}
	default:
		return &StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}
	}
}

func truncate(b []byte) string {
	if len(b) > constants.MaxErrorBodyLength {
		return string(b[:constants.MaxErrorBodyLength]) + "..."
	}
	return string(b)
}
