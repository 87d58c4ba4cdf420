package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/match"
)

// Result represents the complete result of a sync run.
type Result struct {
	// Run metadata
	RunID      string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Match phase
	MatchedTables   int `json:"matched_tables" yaml:"matched_tables"`
	UnmatchedTables int `json:"unmatched_tables" yaml:"unmatched_tables"`
	MatchedColumns  int `json:"matched_columns" yaml:"matched_columns"`
	MissingColumns  int `json:"missing_columns" yaml:"missing_columns"`
	FailedFetches   int `json:"failed_fetches" yaml:"failed_fetches"`

	// Plan and apply phase
	Planned          int `json:"planned" yaml:"planned"`
	UpdatedColumns   int `json:"updated_columns" yaml:"updated_columns"`
	UpdatedDatasets  int `json:"updated_datasets" yaml:"updated_datasets"`
	SkippedColumns   int `json:"skipped_columns" yaml:"skipped_columns"`
	PreservedColumns int `json:"preserved_columns" yaml:"preserved_columns"`
	FailedUpdates    int `json:"failed_updates" yaml:"failed_updates"`

	// Details
	Unmatched []Unmatched    `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Failures  []Failure      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Entries   []differ.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`

	MissingColumnPolicy MissingColumnPolicy `json:"missing_column_policy" yaml:"missing_column_policy"`
}

// Unmatched is a table or column without a counterpart.
type Unmatched struct {
	Table      string       `json:"table" yaml:"table"`
	Column     string       `json:"column,omitempty" yaml:"column,omitempty"`
	Reason     match.Reason `json:"reason" yaml:"reason"`
	Candidates []int        `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// Failure is an update that did not succeed.
type Failure struct {
	Entry differ.Entry `json:"entry" yaml:"entry"`
	Error string       `json:"error" yaml:"error"`
	Err   error        `json:"-" yaml:"-"`
}

// NewResult aggregates the match phase counts and the plan's skips.
func NewResult(results []match.Result, plan *differ.Plan, opts ...Option) *Result {
	o := Defaults().Apply(opts...)
	r := &Result{
		DryRun:              o.DryRun,
		MissingColumnPolicy: o.MissingColumns,
	}

	for _, res := range results {
		table := res.Table.String()
		if !res.Matched() {
			r.UnmatchedTables++
			if res.Reason == match.DatasetUnavailable {
				r.FailedFetches++
			}
			r.Unmatched = append(r.Unmatched, Unmatched{Table: table, Reason: res.Reason, Candidates: res.Candidates})
			continue
		}

		r.MatchedTables++
		for _, c := range res.Columns {
			switch {
			case c.Matched():
				r.MatchedColumns++
			case c.Reason == match.ColumnNotFound:
				r.MissingColumns++
				if o.MissingColumns == MissingIgnore {
					continue
				}
				r.Unmatched = append(r.Unmatched, Unmatched{Table: table, Column: c.Column.Name, Reason: c.Reason})
			default:
				r.Unmatched = append(r.Unmatched, Unmatched{Table: table, Column: c.Column.Name, Reason: c.Reason, Candidates: c.Candidates})
			}
		}
	}

	if plan != nil {
		r.Planned = plan.Len()
		r.Entries = plan.Entries
		r.SkippedColumns = len(plan.Skipped)
		r.PreservedColumns = plan.Count(differ.Preserved)
	}
	return r
}

// Merge adds the apply phase counts of other into r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.UpdatedColumns += other.UpdatedColumns
	r.UpdatedDatasets += other.UpdatedDatasets
	r.FailedUpdates += other.FailedUpdates
	r.Failures = append(r.Failures, other.Failures...)
	if r.Planned == 0 {
		r.Planned = other.Planned
		r.Entries = other.Entries
	}
}

// HasFailures reports whether the run should exit non-zero.
func (r *Result) HasFailures() bool {
	if r.FailedUpdates > 0 || r.FailedFetches > 0 {
		return true
	}
	return r.MissingColumnPolicy == MissingFail && r.MissingColumns > 0
}

// HasChanges returns true if the run planned any update.
func (r *Result) HasChanges() bool {
	return r.Planned > 0
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	var parts []string
	if r.DryRun {
		parts = append(parts, fmt.Sprintf("%d updates planned", r.Planned))
	} else {
		parts = append(parts, fmt.Sprintf("%d columns updated", r.UpdatedColumns))
		if r.UpdatedDatasets > 0 {
			parts = append(parts, fmt.Sprintf("%d datasets updated", r.UpdatedDatasets))
		}
	}
	parts = append(parts, fmt.Sprintf("%d skipped", r.SkippedColumns))
	if r.FailedUpdates > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.FailedUpdates))
	}
	if r.FailedFetches > 0 {
		parts = append(parts, fmt.Sprintf("%d datasets unavailable", r.FailedFetches))
	}

	summary := fmt.Sprintf("%d/%d tables matched: %s",
		r.MatchedTables, r.MatchedTables+r.UnmatchedTables, strings.Join(parts, ", "))
	if r.DryRun {
		summary += " (dry run)"
	}
	return summary
}
