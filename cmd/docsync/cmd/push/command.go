package push

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/docsync/internal/cmd/alerts"
	"github.com/agentstation/docsync/internal/cmd/application"
	"github.com/agentstation/docsync/internal/cmd/output"
	"github.com/agentstation/docsync/pkg/errors"
)

// ErrFailures is returned when a run completed but some updates or fetches
// failed, or the fail policy found missing columns.
var ErrFailures = errors.New("sync finished with failures")

// NewCommand creates the push command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push dbt descriptions to Superset datasets",
		Args:  cobra.NoArgs,
		Long: `Push reads the dbt manifest and catalog, matches every model to the
physical Superset dataset backed by the same database, schema and table,
and writes the dbt column descriptions into the dataset columns.

The command will:
• Load target/manifest.json and target/catalog.json (or --manifest/--catalog)
• List physical datasets, filtered by --database, --schema and --dataset-filter
• Fetch the columns of every uniquely matched dataset
• Plan an update for each column whose dbt description differs
• Apply the plan, unless --dry-run is set

Empty dbt descriptions never overwrite existing Superset descriptions.
Calculated columns are never touched.`,
		Example: `  docsync push                                   # Push from ./target
  docsync push --project-dir ./analytics         # Push another project
  docsync push --dry-run -o wide                 # Preview every change
  docsync push --schema marts --refresh-columns  # Refresh columns first
  docsync push --missing-columns fail            # Fail on columns Superset lacks`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	flags = addFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, app application.Application, flags *Flags) error {
	ctx := cmd.Context()
	logger := app.Logger()

	// Resolve output format before contacting Superset
	explicit := flags.Format
	if explicit == "" {
		explicit = app.OutputFormat()
	}
	format, err := output.ParseFormat(explicit)
	if err != nil {
		return err
	}
	if format == "" {
		format = output.DetectFormat("")
	}

	opts, err := BuildSyncOptions(flags)
	if err != nil {
		return err
	}

	conn := BuildConnection(app.Connection(), flags, cmd.Flags())
	syncer, err := app.Syncer(ctx, conn)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("superset_url", conn.URL).
		Bool("dry_run", flags.DryRun).
		Msg("Starting push")

	result, err := syncer.Sync(ctx, opts...)
	if result != nil {
		if printErr := output.FormatResult(cmd.OutOrStdout(), result, format); printErr != nil {
			logger.Warn().Err(printErr).Msg("Failed to print result")
		}
		// Structured formats already carry everything; alerts are for people.
		if format.IsTable() {
			w := alerts.NewTextWriter(cmd.ErrOrStderr(), noColor(cmd))
			if alertErr := alerts.WriteAll(w, alerts.FromResult(result)); alertErr != nil {
				logger.Warn().Err(alertErr).Msg("Failed to print alerts")
			}
		}
	}
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%w: %d updates failed, %d datasets unavailable, %d columns missing",
			ErrFailures, result.FailedUpdates, result.FailedFetches, result.MissingColumns)
	}
	return nil
}

// noColor honours the root --no-color flag and the NO_COLOR convention.
func noColor(cmd *cobra.Command) bool {
	if f := cmd.Flag("no-color"); f != nil && f.Changed {
		return true
	}
	return os.Getenv("NO_COLOR") != ""
}
