// Package alerts reports the outcome of a sync run as short status lines
// for the terminal, next to the result table.
package alerts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/sync"
)

// maxDetails caps how many items an alert lists before summarizing the rest.
const maxDetails = 5

// Alert represents a status notification.
type Alert struct {
	Level   Level
	Message string
	Details []string
}

// New creates a new alert with the given level and message.
func New(level Level, message string) *Alert {
	return &Alert{Level: level, Message: message}
}

// WithDetails adds additional context details to the alert.
func (a *Alert) WithDetails(details ...string) *Alert {
	a.Details = append(a.Details, details...)
	return a
}

// String returns the alert line without details.
func (a *Alert) String() string {
	return a.Level.Icon() + " " + a.Message
}

// FromResult derives the alerts worth showing for a finished run, most
// severe first.
func FromResult(r *sync.Result) []*Alert {
	var out []*Alert

	if r.FailedUpdates > 0 {
		details := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			details = append(details, fmt.Sprintf("%s: %s", f.Entry, f.Error))
		}
		out = append(out, New(LevelError, fmt.Sprintf("%d updates failed", r.FailedUpdates)).
			WithDetails(capped(details)...))
	}
	if r.FailedFetches > 0 {
		out = append(out, New(LevelError, fmt.Sprintf("%d datasets could not be fetched", r.FailedFetches)).
			WithDetails(capped(tables(r.Unmatched, match.DatasetUnavailable))...))
	}
	if r.MissingColumns > 0 && r.MissingColumnPolicy != sync.MissingIgnore {
		level := LevelWarning
		if r.MissingColumnPolicy == sync.MissingFail {
			level = LevelError
		}
		out = append(out, New(level, fmt.Sprintf("%d dbt columns are missing in Superset", r.MissingColumns)).
			WithDetails(capped(columns(r.Unmatched))...).
			WithDetails(hintRefresh))
	}
	if n := len(tables(r.Unmatched, match.DatasetNotFound)); n > 0 {
		out = append(out, New(LevelWarning, fmt.Sprintf("%d dbt tables have no Superset dataset", n)).
			WithDetails(capped(tables(r.Unmatched, match.DatasetNotFound))...))
	}
	if n := len(tables(r.Unmatched, match.AmbiguousDataset)); n > 0 {
		out = append(out, New(LevelWarning, fmt.Sprintf("%d dbt tables match several datasets and were skipped", n)).
			WithDetails(capped(tables(r.Unmatched, match.AmbiguousDataset))...).
			WithDetails(hintDatabase))
	}

	switch {
	case r.DryRun && r.Planned > 0:
		out = append(out, New(LevelInfo, fmt.Sprintf("dry run: %d updates planned, nothing written", r.Planned)))
	case !r.HasFailures() && r.UpdatedColumns > 0:
		out = append(out, New(LevelSuccess, fmt.Sprintf("%d columns updated in %d datasets", r.UpdatedColumns, r.UpdatedDatasets)))
	case !r.HasFailures() && r.Planned == 0:
		out = append(out, New(LevelSuccess, "Superset is up to date"))
	}
	return out
}

const (
	hintRefresh  = "hint: --refresh-columns syncs dataset columns from the database first"
	hintDatabase = "hint: narrow the datasets with --database or --database-id"
)

func tables(unmatched []sync.Unmatched, reason match.Reason) []string {
	var out []string
	for _, u := range unmatched {
		if u.Column == "" && u.Reason == reason {
			out = append(out, u.Table)
		}
	}
	sort.Strings(out)
	return out
}

func columns(unmatched []sync.Unmatched) []string {
	var out []string
	for _, u := range unmatched {
		if u.Column != "" && u.Reason == match.ColumnNotFound {
			out = append(out, u.Table+"."+u.Column)
		}
	}
	sort.Strings(out)
	return out
}

func capped(items []string) []string {
	if len(items) <= maxDetails {
		return items
	}
	rest := len(items) - maxDetails
	return append(items[:maxDetails:maxDetails], fmt.Sprintf("and %d more", rest))
}

// joinDetails indents details under their alert line.
func joinDetails(details []string) string {
	if len(details) == 0 {
		return ""
	}
	return "   " + strings.Join(details, "\n   ") + "\n"
}
