package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithTableDescriptions also plans dataset description updates from dbt
// model descriptions
func WithTableDescriptions(enabled bool) Option {
	return func(d *differ) {
		d.tableDescriptions = enabled
	}
}
