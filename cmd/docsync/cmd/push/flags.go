package push

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/sync"
)

// Flags holds the push command flags.
type Flags struct {
	// Superset connection
	SupersetURL  string
	Username     string
	Password     string
	AuthProvider string
	CSRF         bool
	RateLimit    float64

	// dbt artifacts
	ProjectDir          string
	Manifest            string
	Catalog             string
	DefaultDescriptions string
	DbtDatabase         string
	IncludeSources      bool
	PlainText           bool

	// Dataset selection
	Database        string
	DatabaseID      int
	Schema          string
	DatasetFilter   string
	IgnoreDatabase  bool
	DatabaseAliases map[string]string

	// Behaviour
	TableDescriptions bool
	RefreshColumns    bool
	PauseAfterUpdate  time.Duration
	Concurrency       int
	MissingColumns    string
	DryRun            bool
	Timeout           time.Duration
	Format            string
}

// addFlags registers the push flags on cmd.
func addFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}
	f := cmd.Flags()

	f.StringVar(&flags.SupersetURL, "superset-url", "", "Superset base URL (env SUPERSET_URL)")
	f.StringVar(&flags.Username, "username", "", "Superset username (env SUPERSET_USERNAME)")
	f.StringVar(&flags.Password, "password", "", "Superset password (env SUPERSET_PASSWORD)")
	f.StringVar(&flags.AuthProvider, "auth-provider", constants.DefaultAuthProvider, "Superset security provider: db or ldap")
	f.BoolVar(&flags.CSRF, "csrf", false, "send a CSRF token with writes")
	f.Float64Var(&flags.RateLimit, "rate-limit", 0, "maximum Superset requests per second (0 = unlimited)")

	f.StringVar(&flags.ProjectDir, "project-dir", ".", "dbt project directory; artifacts are read from <dir>/target")
	f.StringVar(&flags.Manifest, "manifest", "", "manifest.json path or URL (default <project-dir>/target/manifest.json)")
	f.StringVar(&flags.Catalog, "catalog", "", "catalog.json path or URL (default <project-dir>/target/catalog.json)")
	f.StringVar(&flags.DefaultDescriptions, "default-descriptions", "", "YAML file of fallback column descriptions")
	f.StringVar(&flags.DbtDatabase, "dbt-database", "", "only push tables of this dbt database")
	f.BoolVar(&flags.IncludeSources, "include-sources", false, "also push descriptions of dbt sources")
	f.BoolVar(&flags.PlainText, "plain-text", true, "convert markdown descriptions to plain text (--plain-text=false keeps markdown)")

	f.StringVar(&flags.Database, "database", "", "Superset database name, glob or re: pattern")
	f.IntVar(&flags.DatabaseID, "database-id", 0, "Superset database id")
	f.StringVar(&flags.Schema, "schema", "", "schema name, glob or re: pattern")
	f.StringVar(&flags.DatasetFilter, "dataset-filter", "", "\"schema.table\" substring, glob or re: pattern")
	f.BoolVar(&flags.IgnoreDatabase, "ignore-database", false, "match tables on schema and name only")
	f.StringToStringVar(&flags.DatabaseAliases, "database-alias", nil, "map Superset database names to dbt database names (superset=dbt)")

	f.BoolVar(&flags.TableDescriptions, "table-descriptions", false, "also push model descriptions to dataset descriptions")
	f.BoolVar(&flags.RefreshColumns, "refresh-columns", false, "refresh dataset columns from the warehouse before matching")
	f.DurationVar(&flags.PauseAfterUpdate, "pause-after-update", 0, "wait after each dataset's updates")
	f.IntVar(&flags.Concurrency, "concurrency", constants.DefaultConcurrency, "datasets fetched and updated concurrently (1-8)")
	f.StringVar(&flags.MissingColumns, "missing-columns", string(sync.MissingReport), "dbt columns absent from Superset: report, ignore or fail")
	f.BoolVar(&flags.DryRun, "dry-run", false, "print the update plan without writing")
	f.DurationVar(&flags.Timeout, "timeout", constants.SyncTimeout, "timeout for the whole run (0 = none)")
	f.StringVarP(&flags.Format, "format", "o", "", "output format: table, wide, json, yaml")

	return flags
}
