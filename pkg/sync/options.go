// Package sync applies an update plan to Superset and summarizes the run.
package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// MissingColumnPolicy decides how dbt columns absent from a matched dataset
// are treated.
type MissingColumnPolicy string

const (
	// MissingReport lists missing columns in the summary.
	MissingReport MissingColumnPolicy = "report"
	// MissingIgnore leaves missing columns out of the summary.
	MissingIgnore MissingColumnPolicy = "ignore"
	// MissingFail lists missing columns and fails the run.
	MissingFail MissingColumnPolicy = "fail"
)

// ParseMissingColumnPolicy parses a policy name.
func ParseMissingColumnPolicy(s string) (MissingColumnPolicy, error) {
	switch p := MissingColumnPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingReport, MissingIgnore, MissingFail:
		return p, nil
	case "":
		return MissingReport, nil
	}
	return "", errors.NewValidationError("missing_columns", s, "must be one of report, ignore, fail")
}

// Options controls how a plan is applied and summarized.
type Options struct {
	DryRun           bool                // Report the plan without writing
	Concurrency      int                 // Datasets updated in parallel
	PauseAfterUpdate time.Duration       // Wait after each dataset's writes
	MissingColumns   MissingColumnPolicy // Treatment of ColumnNotFound
}

// Apply applies the given options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		DryRun:           false,
		Concurrency:      constants.DefaultConcurrency,
		PauseAfterUpdate: 0,
		MissingColumns:   MissingReport,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Concurrency < 1 || s.Concurrency > constants.MaxConcurrency {
		return &errors.ValidationError{
			Field:   "Concurrency",
			Value:   s.Concurrency,
			Message: fmt.Sprintf("concurrency must be between 1 and %d", constants.MaxConcurrency),
		}
	}
	if s.PauseAfterUpdate < 0 {
		return &errors.ValidationError{
			Field:   "PauseAfterUpdate",
			Value:   s.PauseAfterUpdate,
			Message: "pause must be non-negative",
		}
	}
	if _, err := ParseMissingColumnPolicy(string(s.MissingColumns)); err != nil {
		return err
	}
	return nil
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithConcurrency sets how many datasets are updated in parallel.
func WithConcurrency(n int) Option {
	return func(opts *Options) {
		opts.Concurrency = n
	}
}

// WithPauseAfterUpdate waits d after the writes of each dataset.
func WithPauseAfterUpdate(d time.Duration) Option {
	return func(opts *Options) {
		opts.PauseAfterUpdate = d
	}
}

// WithMissingColumns sets the missing column policy.
func WithMissingColumns(p MissingColumnPolicy) Option {
	return func(opts *Options) {
		opts.MissingColumns = p
	}
}
