// Package match pairs dbt tables and columns with Superset datasets and
// columns by normalized exact name. It never guesses: a name that resolves
// to more than one remote object is reported as ambiguous.
package match

import (
	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/superset"
)

// Reason explains why a table or column was not matched.
type Reason string

const (
	// Matched means the table or column has exactly one counterpart.
	Matched Reason = ""
	// AmbiguousDataset means several datasets share the table's key.
	AmbiguousDataset Reason = "ambiguous_dataset"
	// DatasetNotFound means no dataset has the table's key.
	DatasetNotFound Reason = "dataset_not_found"
	// DatasetUnavailable means the dataset exists but its columns could
	// not be fetched.
	DatasetUnavailable Reason = "dataset_unavailable"
	// ColumnNotFound means the dataset has no physical column of that name.
	ColumnNotFound Reason = "column_not_found"
	// AmbiguousColumn means several physical columns share the name.
	AmbiguousColumn Reason = "ambiguous_column"
)

// Result is the outcome of matching one table.
type Result struct {
	Table   artifacts.Table
	Dataset *superset.Dataset
	Reason  Reason
	// Candidates lists the dataset ids sharing the key when ambiguous.
	Candidates []int
	Columns    []ColumnResult
}

// ColumnResult is the outcome of matching one column of a matched table.
type ColumnResult struct {
	Column     artifacts.Column
	Remote     *superset.Column
	Reason     Reason
	Candidates []int
}

// Matched reports whether the table resolved to exactly one usable dataset.
func (r Result) Matched() bool {
	return r.Reason == Matched && r.Dataset != nil
}

// Matched reports whether the column resolved to exactly one remote column.
func (c ColumnResult) Matched() bool {
	return c.Reason == Matched && c.Remote != nil
}

// Match resolves every table against datasets. Columns are matched only for
// tables with exactly one dataset, and only against physical columns.
// Results follow the order of tables. Returned pointers refer to elements
// of datasets.
func Match(tables []artifacts.Table, datasets []superset.Dataset, opts ...Option) []Result {
	o := newOptions(opts...)

	index := make(map[string][]int, len(datasets))
	for i := range datasets {
		key := o.datasetKey(datasets[i])
		index[key] = append(index[key], i)
	}

	results := make([]Result, 0, len(tables))
	for _, table := range tables {
		r := Result{Table: table}
		hits := index[o.tableKey(table)]

		switch len(hits) {
		case 0:
			r.Reason = DatasetNotFound
		case 1:
			r.Dataset = &datasets[hits[0]]
			if o.unavailable[r.Dataset.ID] {
				r.Reason = DatasetUnavailable
				break
			}
			r.Columns = matchColumns(table, r.Dataset)
		default:
			r.Reason = AmbiguousDataset
			for _, i := range hits {
				r.Candidates = append(r.Candidates, datasets[i].ID)
			}
		}
		results = append(results, r)
	}
	return results
}

func matchColumns(table artifacts.Table, d *superset.Dataset) []ColumnResult {
	index := make(map[string][]int, len(d.Columns))
	for i, col := range d.Columns {
		if col.IsCalculated() {
			continue
		}
		key := artifacts.Normalize(col.Name)
		index[key] = append(index[key], i)
	}

	out := make([]ColumnResult, 0, len(table.Columns))
	for _, col := range table.Columns {
		cr := ColumnResult{Column: col}
		hits := index[artifacts.Normalize(col.Name)]
		switch len(hits) {
		case 0:
			cr.Reason = ColumnNotFound
		case 1:
			cr.Remote = &d.Columns[hits[0]]
		default:
			cr.Reason = AmbiguousColumn
			for _, i := range hits {
				cr.Candidates = append(cr.Candidates, d.Columns[i].ID)
			}
		}
		out = append(out, cr)
	}
	return out
}
