package artifacts

// Option configures NewTables.
type Option func(*options)

type options struct {
	sources   bool
	plainText bool
	database  string
	defaults  *DefaultDescriptions
}

// WithSources includes source definitions alongside models.
func WithSources(enabled bool) Option {
	return func(o *options) {
		o.sources = enabled
	}
}

// WithPlainText renders markdown descriptions as single-line plain text.
func WithPlainText(enabled bool) Option {
	return func(o *options) {
		o.plainText = enabled
	}
}

// WithDatabase keeps only tables of the given dbt database.
// An empty name keeps every database.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.database = name
	}
}

// WithDefaultDescriptions supplies fallback descriptions for columns whose
// dbt description is empty.
func WithDefaultDescriptions(d *DefaultDescriptions) Option {
	return func(o *options) {
		o.defaults = d
	}
}
