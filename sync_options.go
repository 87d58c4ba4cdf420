package docsync

import (
	"path/filepath"
	"time"

	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/sync"
)

// SyncOptions controls one sync run.
type SyncOptions struct {
	// Artifact inputs
	ManifestURL            string
	CatalogURL             string
	DefaultDescriptionsURL string
	Tables                 []artifacts.Table // used instead of loading artifacts when set

	// Artifact model
	IncludeSources bool
	PlainText      bool
	DbtDatabase    string

	// Dataset selection and matching
	Filter          superset.Filter
	IgnoreDatabase  bool
	DatabaseAliases map[string]string

	// Planning
	TableDescriptions bool

	// Execution
	RefreshColumns   bool
	DryRun           bool
	Concurrency      int
	PauseAfterUpdate time.Duration
	MissingColumns   sync.MissingColumnPolicy
	Timeout          time.Duration
}

// SyncOption configures a sync run.
type SyncOption func(*SyncOptions)

// NewSyncOptions returns the defaults with opts applied.
func NewSyncOptions(opts ...SyncOption) *SyncOptions {
	o := &SyncOptions{
		Concurrency:    constants.DefaultConcurrency,
		MissingColumns: sync.MissingReport,
		Timeout:        constants.SyncTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the options before any artifact is read.
func (o *SyncOptions) Validate() error {
	if o.Tables == nil {
		if o.ManifestURL == "" {
			return errors.NewValidationError("manifest", o.ManifestURL, "is required")
		}
		if o.CatalogURL == "" {
			return errors.NewValidationError("catalog", o.CatalogURL, "is required")
		}
	}
	if o.Timeout < 0 {
		return errors.NewValidationError("timeout", o.Timeout, "must not be negative")
	}
	if o.IgnoreDatabase && len(o.DatabaseAliases) > 0 {
		return errors.NewValidationError("database_aliases", o.DatabaseAliases, "cannot be combined with ignore database")
	}
	return o.syncOptions().Validate()
}

// artifactOptions returns the options for artifacts.NewTables.
func (o *SyncOptions) artifactOptions() []artifacts.Option {
	return []artifacts.Option{
		artifacts.WithSources(o.IncludeSources),
		artifacts.WithPlainText(o.PlainText),
		artifacts.WithDatabase(o.DbtDatabase),
	}
}

// matchOptions returns the options for match.Match.
func (o *SyncOptions) matchOptions(unavailable ...int) []match.Option {
	return []match.Option{
		match.WithIgnoreDatabase(o.IgnoreDatabase),
		match.WithDatabaseAliases(o.DatabaseAliases),
		match.WithUnavailable(unavailable...),
	}
}

// differOptions returns the options for differ.New.
func (o *SyncOptions) differOptions() []differ.Option {
	return []differ.Option{
		differ.WithTableDescriptions(o.TableDescriptions),
	}
}

// applyOptions returns the options for sync.Apply and sync.NewResult.
func (o *SyncOptions) applyOptions() []sync.Option {
	return []sync.Option{
		sync.WithDryRun(o.DryRun),
		sync.WithConcurrency(o.Concurrency),
		sync.WithPauseAfterUpdate(o.PauseAfterUpdate),
		sync.WithMissingColumns(o.MissingColumns),
	}
}

func (o *SyncOptions) syncOptions() *sync.Options {
	return sync.Defaults().Apply(o.applyOptions()...)
}

// WithManifest sets the manifest.json location.
func WithManifest(url string) SyncOption {
	return func(o *SyncOptions) {
		o.ManifestURL = url
	}
}

// WithCatalog sets the catalog.json location.
func WithCatalog(url string) SyncOption {
	return func(o *SyncOptions) {
		o.CatalogURL = url
	}
}

// WithProjectDir reads target/manifest.json and target/catalog.json under
// dir. Explicit WithManifest and WithCatalog options given later win.
func WithProjectDir(dir string) SyncOption {
	return func(o *SyncOptions) {
		o.ManifestURL = filepath.Join(dir, "target", "manifest.json")
		o.CatalogURL = filepath.Join(dir, "target", "catalog.json")
	}
}

// WithDefaultDescriptions sets the YAML overlay of fallback column
// descriptions.
func WithDefaultDescriptions(url string) SyncOption {
	return func(o *SyncOptions) {
		o.DefaultDescriptionsURL = url
	}
}

// WithTables uses already built tables instead of loading artifacts.
func WithTables(tables []artifacts.Table) SyncOption {
	return func(o *SyncOptions) {
		o.Tables = tables
		if o.Tables == nil {
			o.Tables = []artifacts.Table{}
		}
	}
}

// WithIncludeSources also pushes descriptions of dbt sources.
func WithIncludeSources(enabled bool) SyncOption {
	return func(o *SyncOptions) {
		o.IncludeSources = enabled
	}
}

// WithPlainText converts markdown descriptions to plain text.
func WithPlainText(enabled bool) SyncOption {
	return func(o *SyncOptions) {
		o.PlainText = enabled
	}
}

// WithDbtDatabase keeps only dbt tables of one database.
func WithDbtDatabase(name string) SyncOption {
	return func(o *SyncOptions) {
		o.DbtDatabase = name
	}
}

// WithFilter sets the full dataset filter.
func WithFilter(filter superset.Filter) SyncOption {
	return func(o *SyncOptions) {
		o.Filter = filter
	}
}

// WithDatabaseID keeps datasets of one Superset database.
func WithDatabaseID(id int) SyncOption {
	return func(o *SyncOptions) {
		o.Filter.DatabaseID = id
	}
}

// WithDatabase filters datasets by Superset database name or pattern.
func WithDatabase(pattern string) SyncOption {
	return func(o *SyncOptions) {
		o.Filter.Database = pattern
	}
}

// WithSchema filters datasets by schema name or pattern.
func WithSchema(pattern string) SyncOption {
	return func(o *SyncOptions) {
		o.Filter.Schema = pattern
	}
}

// WithDatasetFilter filters datasets by "schema.table". Plain text matches
// as a substring.
func WithDatasetFilter(pattern string) SyncOption {
	return func(o *SyncOptions) {
		o.Filter.Dataset = pattern
	}
}

// WithIgnoreDatabase matches tables on schema and name only.
func WithIgnoreDatabase(ignore bool) SyncOption {
	return func(o *SyncOptions) {
		o.IgnoreDatabase = ignore
	}
}

// WithDatabaseAliases maps Superset database names to dbt database names.
func WithDatabaseAliases(aliases map[string]string) SyncOption {
	return func(o *SyncOptions) {
		o.DatabaseAliases = aliases
	}
}

// WithTableDescriptions also pushes model descriptions to dataset descriptions.
func WithTableDescriptions(enabled bool) SyncOption {
	return func(o *SyncOptions) {
		o.TableDescriptions = enabled
	}
}

// WithRefreshColumns refreshes matched datasets' columns before reading them.
func WithRefreshColumns(enabled bool) SyncOption {
	return func(o *SyncOptions) {
		o.RefreshColumns = enabled
	}
}

// WithDryRun plans without writing.
func WithDryRun(dryRun bool) SyncOption {
	return func(o *SyncOptions) {
		o.DryRun = dryRun
	}
}

// WithConcurrency bounds concurrent fetches and dataset updates.
func WithConcurrency(n int) SyncOption {
	return func(o *SyncOptions) {
		o.Concurrency = n
	}
}

// WithPauseAfterUpdate waits after each dataset's writes.
func WithPauseAfterUpdate(d time.Duration) SyncOption {
	return func(o *SyncOptions) {
		o.PauseAfterUpdate = d
	}
}

// WithMissingColumns sets how dbt columns absent from Superset are treated.
func WithMissingColumns(p sync.MissingColumnPolicy) SyncOption {
	return func(o *SyncOptions) {
		o.MissingColumns = p
	}
}

// WithTimeout bounds the whole run. Zero disables the timeout.
func WithTimeout(d time.Duration) SyncOption {
	return func(o *SyncOptions) {
		o.Timeout = d
	}
}
