// Package errors provides custom error types for the docsync system.
// These errors enable programmatic checks (errors.Is / errors.As) on the
// categories the sync engine cares about: malformed dbt artifacts, rejected
// credentials, retryable network failures and vanished remote objects.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the docsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrArtifactFormat indicates a malformed or incompatible dbt artifact
	ErrArtifactFormat = errors.New("artifact format")

	// ErrAuthentication indicates that the platform rejected the credentials
	ErrAuthentication = errors.New("authentication failed")

	// ErrTransient indicates a retryable network or server failure
	ErrTransient = errors.New("transient network error")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")
)

// ArtifactFormatError reports a dbt artifact that is missing a required
// field or has an incompatible schema version. It is fatal and is raised
// before the platform is contacted.
type ArtifactFormatError struct {
	Artifact string // "manifest", "catalog", "default descriptions"
	ID       string // unique id of the offending node, if any
	Field    string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *ArtifactFormatError) Error() string {
	switch {
	case e.ID != "" && e.Field != "":
		return fmt.Sprintf("invalid %s: node %s: field %s: %s", e.Artifact, e.ID, e.Field, e.Message)
	case e.ID != "":
		return fmt.Sprintf("invalid %s: node %s: %s", e.Artifact, e.ID, e.Message)
	case e.Field != "":
		return fmt.Sprintf("invalid %s: field %s: %s", e.Artifact, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Artifact, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ArtifactFormatError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ArtifactFormatError) Is(target error) bool {
	return target == ErrArtifactFormat
}

// NewArtifactFormatError creates a new ArtifactFormatError
func NewArtifactFormatError(artifact, id, field, message string) *ArtifactFormatError {
	return &ArtifactFormatError{Artifact: artifact, ID: id, Field: field, Message: message}
}

// AuthenticationError represents rejected credentials or a failed token
// refresh. It is never retried.
type AuthenticationError struct {
	Platform   string
	Method     string // "password", "refresh", "csrf"
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication error for %s (%s, status %d): %s", e.Platform, e.Method, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication error for %s (%s): %s", e.Platform, e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(platform, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Platform: platform,
		Method:   method,
		Message:  message,
		Err:      err,
	}
}

// TransientNetworkError represents a timeout, connection failure, 429 or
// 5xx response. Callers retry it with backoff; once retries are exhausted it
// becomes a per-item failure.
type TransientNetworkError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Attempts   int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransientNetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error on %s %s (status %d, attempts %d): %s", e.Method, e.Endpoint, e.StatusCode, e.Attempts, msg)
	}
	return fmt.Sprintf("transient error on %s %s (attempts %d): %s", e.Method, e.Endpoint, e.Attempts, msg)
}

// Unwrap implements errors.Unwrap
func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientNetworkError) Is(target error) bool {
	if target == ErrTransient {
		return true
	}
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// APIError represents a non-retryable error response from the platform API
type APIError struct {
	Platform   string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Platform, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "open", "download"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "list", "get", "update", "refresh"
	Resource  string // "dataset", "column"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsArtifactFormat checks if an error is an artifact format error
func IsArtifactFormat(err error) bool {
	return errors.Is(err, ErrArtifactFormat)
}

// IsAuthentication checks if an error is an authentication error
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsTransient checks if an error is retryable
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapArtifact wraps a decode failure as an ArtifactFormatError
func WrapArtifact(artifact string, err error) error {
	if err == nil {
		return nil
	}
	return &ArtifactFormatError{Artifact: artifact, Message: err.Error(), Err: err}
}
