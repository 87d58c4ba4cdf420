// Package differ computes the description updates needed to bring
// Superset in line with dbt.
package differ

import (
	"fmt"
)

// Kind is the object an Entry updates.
type Kind string

const (
	// KindColumn updates a column description.
	KindColumn Kind = "column"
	// KindDataset updates a dataset description.
	KindDataset Kind = "dataset"
)

// Entry is one planned description update.
type Entry struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	DatasetID int    `json:"dataset_id" yaml:"dataset_id"`
	ColumnID  int    `json:"column_id,omitempty" yaml:"column_id,omitempty"`
	Table     string `json:"table" yaml:"table"`
	Column    string `json:"column,omitempty" yaml:"column,omitempty"`
	Old       string `json:"old" yaml:"old"`
	New       string `json:"new" yaml:"new"`
}

// String returns a short identifier of the updated object.
func (e Entry) String() string {
	if e.Kind == KindDataset {
		return fmt.Sprintf("%s (dataset %d)", e.Table, e.DatasetID)
	}
	return fmt.Sprintf("%s.%s (dataset %d, column %d)", e.Table, e.Column, e.DatasetID, e.ColumnID)
}

// SkipReason explains why a matched column needs no update.
type SkipReason string

const (
	// UpToDate means Superset already has the dbt description.
	UpToDate SkipReason = "up_to_date"
	// Undocumented means neither side has a description.
	Undocumented SkipReason = "undocumented"
	// Preserved means dbt has no description, so the Superset one is kept.
	Preserved SkipReason = "preserved"
)

// Skip is a matched column left unchanged.
type Skip struct {
	DatasetID int        `json:"dataset_id" yaml:"dataset_id"`
	ColumnID  int        `json:"column_id" yaml:"column_id"`
	Table     string     `json:"table" yaml:"table"`
	Column    string     `json:"column" yaml:"column"`
	Reason    SkipReason `json:"reason" yaml:"reason"`
}

// Plan is the ordered list of updates for one run.
type Plan struct {
	Entries []Entry
	Skipped []Skip
}

// Len returns the number of planned updates.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// IsEmpty reports whether nothing needs updating.
func (p *Plan) IsEmpty() bool {
	return p.Len() == 0
}

// Count returns the number of skips with the given reason.
func (p *Plan) Count(reason SkipReason) int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

// Group is the slice of a plan touching one dataset.
type Group struct {
	DatasetID int
	Entries   []Entry
}

// ByDataset groups entries by dataset, keeping first-seen order of datasets
// and plan order within each group.
func (p *Plan) ByDataset() []Group {
	if p == nil {
		return nil
	}
	var groups []Group
	pos := make(map[int]int)
	for _, e := range p.Entries {
		i, ok := pos[e.DatasetID]
		if !ok {
			i = len(groups)
			pos[e.DatasetID] = i
			groups = append(groups, Group{DatasetID: e.DatasetID})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}
