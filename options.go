package docsync

import (
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"

	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/errors"
)

// Option is a function that configures a Syncer
type Option func(*config) error

func defaultConfig() *config {
	return &config{
		loader: artifacts.NewLoader(nil),
		now:    time.Now,
		runID:  uuid.NewString,
	}
}

// WithFileSystem configures the afs service artifacts are read through.
// Use it to read artifacts from memory in tests or from object storage.
func WithFileSystem(fs afs.Service) Option {
	return func(c *config) error {
		if fs == nil {
			return errors.NewValidationError("file_system", nil, "must not be nil")
		}
		c.loader = artifacts.NewLoader(fs)
		return nil
	}
}

// WithClock overrides the clock used for run timestamps
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "must not be nil")
		}
		c.now = now
		return nil
	}
}

// WithRunIDFunc overrides how run ids are generated
func WithRunIDFunc(fn func() string) Option {
	return func(c *config) error {
		if fn == nil {
			return errors.NewValidationError("run_id", nil, "must not be nil")
		}
		c.runID = fn
		return nil
	}
}
