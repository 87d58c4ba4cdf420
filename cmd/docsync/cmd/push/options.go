// Package push provides the push command implementation.
package push

import (
	"github.com/spf13/pflag"

	"github.com/agentstation/docsync"
	"github.com/agentstation/docsync/internal/cmd/application"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/sync"
)

// BuildConnection overlays the connection flags that were set on base.
func BuildConnection(base application.Connection, flags *Flags, set *pflag.FlagSet) application.Connection {
	conn := base
	if set.Changed("superset-url") {
		conn.URL = flags.SupersetURL
	}
	if set.Changed("username") {
		conn.Username = flags.Username
	}
	if set.Changed("password") {
		conn.Password = flags.Password
	}
	if set.Changed("auth-provider") || conn.AuthProvider == "" {
		conn.AuthProvider = flags.AuthProvider
	}
	if set.Changed("csrf") {
		conn.CSRF = flags.CSRF
	}
	if set.Changed("rate-limit") {
		conn.RateLimit = flags.RateLimit
	}
	return conn
}

// BuildSyncOptions creates the sync options described by flags.
func BuildSyncOptions(flags *Flags) ([]docsync.SyncOption, error) {
	policy, err := sync.ParseMissingColumnPolicy(flags.MissingColumns)
	if err != nil {
		return nil, err
	}

	opts := []docsync.SyncOption{
		docsync.WithProjectDir(flags.ProjectDir),
	}
	if flags.Manifest != "" {
		opts = append(opts, docsync.WithManifest(flags.Manifest))
	}
	if flags.Catalog != "" {
		opts = append(opts, docsync.WithCatalog(flags.Catalog))
	}
	if flags.DefaultDescriptions != "" {
		opts = append(opts, docsync.WithDefaultDescriptions(flags.DefaultDescriptions))
	}

	opts = append(opts,
		docsync.WithDbtDatabase(flags.DbtDatabase),
		docsync.WithIncludeSources(flags.IncludeSources),
		docsync.WithPlainText(flags.PlainText),
		docsync.WithFilter(superset.Filter{
			DatabaseID: flags.DatabaseID,
			Database:   flags.Database,
			Schema:     flags.Schema,
			Dataset:    flags.DatasetFilter,
		}),
		docsync.WithIgnoreDatabase(flags.IgnoreDatabase),
		docsync.WithDatabaseAliases(flags.DatabaseAliases),
		docsync.WithTableDescriptions(flags.TableDescriptions),
		docsync.WithRefreshColumns(flags.RefreshColumns),
		docsync.WithPauseAfterUpdate(flags.PauseAfterUpdate),
		docsync.WithConcurrency(flags.Concurrency),
		docsync.WithMissingColumns(policy),
		docsync.WithDryRun(flags.DryRun),
		docsync.WithTimeout(flags.Timeout),
	)
	return opts, nil
}
