package artifacts

import (
	"strings"
)

// Resource types read from the manifest.
const (
	ResourceModel  = "model"
	ResourceSource = "source"
)

// Table is a dbt relation with its documented columns.
type Table struct {
	UniqueID     string
	ResourceType string
	Database     string
	Schema       string
	Name         string
	Description  string
	Columns      []Column
}

// Column is a materialized column of a Table. Description is never nil;
// an undocumented column has an empty description.
type Column struct {
	Name        string
	Description string
	DataType    string
}

// String returns database.schema.name as written in the artifacts.
func (t Table) String() string {
	return strings.Join([]string{t.Database, t.Schema, t.Name}, ".")
}

// Key returns the normalized database.schema.name used for matching.
func (t Table) Key() string {
	return Key(t.Database, t.Schema, t.Name)
}

// Column returns the column with the given normalized name.
func (t Table) Column(name string) (Column, bool) {
	want := Normalize(name)
	for _, c := range t.Columns {
		if Normalize(c.Name) == want {
			return c, true
		}
	}
	return Column{}, false
}

// identifierQuotes are stripped by Normalize; they cover ANSI, MySQL/BigQuery
// and SQL Server quoting.
const identifierQuotes = "\"`[]"

// Normalize folds an identifier for comparison: surrounding whitespace and
// quoting characters are removed and the result is lower-cased.
func Normalize(ident string) string {
	ident = strings.TrimSpace(ident)
	ident = strings.Map(func(r rune) rune {
		if strings.ContainsRune(identifierQuotes, r) {
			return -1
		}
		return r
	}, ident)
	return strings.ToLower(strings.TrimSpace(ident))
}

// Key joins normalized identifier parts with dots. Empty parts are kept so
// that keys of different arity never collide.
func Key(parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = Normalize(p)
	}
	return strings.Join(norm, ".")
}
