package differ

import (
	"strings"

	"github.com/agentstation/docsync/pkg/match"
)

// Differ turns match results into an update plan.
type Differ interface {
	// Plan returns the updates needed for results. It never fails:
	// unmatched tables and columns simply contribute nothing.
	Plan(results []match.Result) *Plan
}

// differ is the default implementation of Differ.
type differ struct {
	tableDescriptions bool
}

// New creates a Differ with default settings.
func New(opts ...Option) Differ {
	d := &differ{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan compares trimmed dbt descriptions with the remote ones. An empty
// dbt description never overwrites a remote description, so re-running
// with unchanged inputs yields an empty plan.
func (d *differ) Plan(results []match.Result) *Plan {
	plan := &Plan{Entries: []Entry{}}

	for _, r := range results {
		if !r.Matched() {
			continue
		}
		table := r.Table.String()

		if d.tableDescriptions {
			want := strings.TrimSpace(r.Table.Description)
			if have := r.Dataset.Text(); want != "" && want != have {
				plan.Entries = append(plan.Entries, Entry{
					Kind:      KindDataset,
					DatasetID: r.Dataset.ID,
					Table:     table,
					Old:       have,
					New:       want,
				})
			}
		}

		for _, c := range r.Columns {
			if !c.Matched() {
				continue
			}
			want := strings.TrimSpace(c.Column.Description)
			have := c.Remote.Text()

			if reason, skip := skipReason(want, have); skip {
				plan.Skipped = append(plan.Skipped, Skip{
					DatasetID: r.Dataset.ID,
					ColumnID:  c.Remote.ID,
					Table:     table,
					Column:    c.Column.Name,
					Reason:    reason,
				})
				continue
			}

			plan.Entries = append(plan.Entries, Entry{
				Kind:      KindColumn,
				DatasetID: r.Dataset.ID,
				ColumnID:  c.Remote.ID,
				Table:     table,
				Column:    c.Column.Name,
				Old:       have,
				New:       want,
			})
		}
	}

	return plan
}

func skipReason(want, have string) (SkipReason, bool) {
	switch {
	case want == "" && have == "":
		return Undocumented, true
	case want == "":
		return Preserved, true
	case want == have:
		return UpToDate, true
	}
	return "", false
}
