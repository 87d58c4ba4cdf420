package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/sync"
)

// FormatResult writes a sync result. Table formats print a metrics table
// followed by unmatched items and failures; wide also lists every planned
// entry. Other formats encode the whole result.
func FormatResult(w io.Writer, result *sync.Result, format Format) error {
	formatter := NewFormatter(format)
	if !format.IsTable() {
		return formatter.Format(w, result)
	}

	sections := []Data{ResultToTableData(result)}
	if len(result.Unmatched) > 0 {
		sections = append(sections, UnmatchedToTableData(result.Unmatched))
	}
	if len(result.Failures) > 0 {
		sections = append(sections, FailuresToTableData(result.Failures))
	}
	if format == FormatWide && len(result.Entries) > 0 {
		sections = append(sections, EntriesToTableData(result.Entries))
	}

	for i, data := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := formatter.Format(w, data); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", result.Summary())
	return err
}

// ResultToTableData converts run counters to a metric/value table.
func ResultToTableData(r *sync.Result) Data {
	rows := [][]string{
		{"Matched tables", strconv.Itoa(r.MatchedTables)},
		{"Unmatched tables", strconv.Itoa(r.UnmatchedTables)},
		{"Matched columns", strconv.Itoa(r.MatchedColumns)},
		{"Missing columns", strconv.Itoa(r.MissingColumns)},
		{"Planned updates", strconv.Itoa(r.Planned)},
		{"Updated columns", strconv.Itoa(r.UpdatedColumns)},
		{"Updated datasets", strconv.Itoa(r.UpdatedDatasets)},
		{"Skipped", strconv.Itoa(r.SkippedColumns)},
		{"Preserved", strconv.Itoa(r.PreservedColumns)},
		{"Failed updates", strconv.Itoa(r.FailedUpdates)},
		{"Unavailable datasets", strconv.Itoa(r.FailedFetches)},
	}
	if d := r.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(time.Millisecond).String()})
	}
	return Data{
		Headers:         []string{"Metric", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// UnmatchedToTableData lists tables and columns without a counterpart.
func UnmatchedToTableData(unmatched []sync.Unmatched) Data {
	rows := make([][]string, 0, len(unmatched))
	for _, u := range unmatched {
		rows = append(rows, []string{u.Table, u.Column, reasonLabel(u.Reason), joinInts(u.Candidates)})
	}
	return Data{
		Headers: []string{"Table", "Column", "Reason", "Candidates"},
		Rows:    rows,
	}
}

// FailuresToTableData lists updates that did not succeed.
func FailuresToTableData(failures []sync.Failure) Data {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{strconv.Itoa(f.Entry.DatasetID), target(f.Entry), f.Error})
	}
	return Data{
		Headers: []string{"Dataset", "Target", "Error"},
		Rows:    rows,
	}
}

// EntriesToTableData lists planned description changes.
func EntriesToTableData(entries []differ.Entry) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{strconv.Itoa(e.DatasetID), target(e), truncate(e.Old, 40), truncate(e.New, 40)})
	}
	return Data{
		Headers: []string{"Dataset", "Target", "Old", "New"},
		Rows:    rows,
	}
}

func target(e differ.Entry) string {
	if e.Kind == differ.KindDataset {
		return e.Table
	}
	return e.Table + "." + e.Column
}

var title = cases.Title(language.English)

// reasonLabel turns "ambiguous_dataset" into "Ambiguous dataset".
func reasonLabel(r match.Reason) string {
	words := strings.ReplaceAll(string(r), "_", " ")
	if words == "" {
		return ""
	}
	first, rest, _ := strings.Cut(words, " ")
	if rest == "" {
		return title.String(first)
	}
	return title.String(first) + " " + rest
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
