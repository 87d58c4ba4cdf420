// Package docsync pushes dbt documentation into Apache Superset.
// It reads a dbt manifest and catalog, matches every model (and optionally
// every source) to the physical Superset dataset backed by the same
// relation, and writes the dbt column descriptions into the matching
// dataset columns.
//
// A run is one-directional and idempotent:
// - dbt is the source of truth; Superset is never read back into dbt
// - an empty dbt description never overwrites an existing one
// - a second run against unchanged inputs issues no writes
// - unmatched tables and columns are reported, never treated as errors
//
// Example usage:
//
//	// Connect to Superset
//	client, err := superset.New(ctx, "https://superset.example.com",
//	    superset.WithCredentials("admin", os.Getenv("SUPERSET_PASSWORD")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create a syncer bound to the client
//	ds, err := docsync.New(client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Preview the update plan
//	result, err := ds.Sync(ctx,
//	    docsync.WithProjectDir("./analytics"),
//	    docsync.WithSchema("marts"),
//	    docsync.WithDryRun(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary())
//
//	// Push descriptions, refreshing Superset's column lists first
//	result, err = ds.Sync(ctx,
//	    docsync.WithProjectDir("./analytics"),
//	    docsync.WithRefreshColumns(true),
//	    docsync.WithConcurrency(8),
//	)
package docsync

import (
	"context"
	"time"

	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/sync"
)

// Platform is the BI platform a run reads from and writes to.
// *superset.Client implements it.
type Platform interface {
	sync.Updater

	// ListDatasets returns the datasets selected by filter, without columns.
	ListDatasets(ctx context.Context, filter superset.Filter) ([]superset.Dataset, error)

	// GetDataset returns one dataset with its columns.
	GetDataset(ctx context.Context, datasetID int) (*superset.Dataset, error)

	// RefreshColumns asks the platform to re-read a dataset's columns from
	// the warehouse.
	RefreshColumns(ctx context.Context, datasetID int) error
}

// Syncer runs documentation syncs against one platform.
type Syncer interface {
	// Sync loads dbt artifacts, matches them to platform datasets and
	// applies the resulting update plan.
	Sync(ctx context.Context, opts ...SyncOption) (*sync.Result, error)

	// Hooks registers event callbacks fired after writes.
	Hooks() Hooks
}

// Compile-time interface checks.
var (
	_ Syncer   = (*syncer)(nil)
	_ Platform = (*superset.Client)(nil)
)

// syncer is the default Syncer.
type syncer struct {
	config   *config
	platform Platform
	hooks    *hooks
}

// New creates a Syncer for platform.
func New(platform Platform, opts ...Option) (Syncer, error) {
	if platform == nil {
		return nil, &errors.ConfigError{
			Component: "docsync",
			Message:   "platform is required",
		}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errors.WrapResource("apply", "option", "", err)
		}
	}

	return &syncer{
		config:   cfg,
		platform: platform,
		hooks:    newHooks(),
	}, nil
}

// Hooks returns the event registry.
func (s *syncer) Hooks() Hooks {
	return s.hooks
}

// config holds the Syncer configuration.
type config struct {
	loader *artifacts.Loader
	now    func() time.Time
	runID  func() string
}
