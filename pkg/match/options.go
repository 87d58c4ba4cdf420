package match

import (
	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/superset"
)

// Option configures Match.
type Option func(*options)

type options struct {
	ignoreDatabase bool
	aliases        map[string]string
	unavailable    map[int]bool
}

func newOptions(opts ...Option) *options {
	o := &options{
		aliases:     make(map[string]string),
		unavailable: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithIgnoreDatabase matches on (schema, table) only. Use it when Superset
// database names differ from dbt database names.
func WithIgnoreDatabase(ignore bool) Option {
	return func(o *options) {
		o.ignoreDatabase = ignore
	}
}

// WithDatabaseAliases maps Superset database names to dbt database names.
func WithDatabaseAliases(aliases map[string]string) Option {
	return func(o *options) {
		for name, dbt := range aliases {
			o.aliases[artifacts.Normalize(name)] = dbt
		}
	}
}

// WithUnavailable marks datasets whose columns could not be fetched.
func WithUnavailable(datasetIDs ...int) Option {
	return func(o *options) {
		for _, id := range datasetIDs {
			o.unavailable[id] = true
		}
	}
}

func (o *options) tableKey(t artifacts.Table) string {
	if o.ignoreDatabase {
		return artifacts.Key(t.Schema, t.Name)
	}
	return artifacts.Key(t.Database, t.Schema, t.Name)
}

func (o *options) datasetKey(d superset.Dataset) string {
	if o.ignoreDatabase {
		return artifacts.Key(d.Schema, d.TableName)
	}
	db := d.Database
	if alias, ok := o.aliases[artifacts.Normalize(db)]; ok {
		db = alias
	}
	return artifacts.Key(db, d.Schema, d.TableName)
}
