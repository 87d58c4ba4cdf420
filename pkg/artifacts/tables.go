// Package artifacts reads dbt's manifest.json and catalog.json and joins
// them into the documented tables docsync pushes to the BI platform.
package artifacts

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/agentstation/docsync/pkg/errors"
)

// NewTables joins manifest definitions with catalog relations.
//
// Only model nodes (and sources with WithSources) that have a catalog entry
// are returned, since a model that was never materialized has no columns to
// document. The column set is the catalog's; descriptions come from the
// manifest column with the same normalized name.
func NewTables(manifest *Manifest, catalog *Catalog, opts ...Option) ([]Table, error) {
	if manifest == nil || catalog == nil {
		return nil, errors.NewValidationError("artifacts", nil, "manifest and catalog are required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// Step 1: Validate artifact versions
	if err := ValidateManifestVersion(manifest); err != nil {
		return nil, err
	}
	if err := ValidateCatalogVersion(catalog); err != nil {
		return nil, err
	}

	// Step 2: Collect candidate nodes
	type candidate struct {
		key     string
		node    ManifestNode
		catalog map[string]CatalogNode
	}
	var candidates []candidate
	for key, node := range manifest.Nodes {
		if node.ResourceType != ResourceModel {
			continue
		}
		candidates = append(candidates, candidate{key, node, catalog.Nodes})
	}
	if o.sources {
		for key, node := range manifest.Sources {
			candidates = append(candidates, candidate{key, node, catalog.Sources})
		}
	}
	slices.SortFunc(candidates, func(a, b candidate) int { return cmp.Compare(a.key, b.key) })

	// Step 3: Build tables
	tables := make([]Table, 0, len(candidates))
	seen := make(map[string]string, len(candidates))
	for _, c := range candidates {
		if c.node.UniqueID == "" {
			return nil, errors.NewArtifactFormatError("manifest", c.key, "unique_id", "missing")
		}
		rel, ok := c.catalog[c.node.UniqueID]
		if !ok {
			continue
		}

		table, err := buildTable(c.node, rel, o)
		if err != nil {
			return nil, err
		}
		if o.database != "" && Normalize(table.Database) != Normalize(o.database) {
			continue
		}

		if prev, dup := seen[table.Key()]; dup {
			return nil, errors.NewArtifactFormatError("manifest", table.UniqueID, "",
				fmt.Sprintf("relation %s is also defined by %s", table, prev))
		}
		seen[table.Key()] = table.UniqueID
		tables = append(tables, table)
	}

	return tables, nil
}

func buildTable(node ManifestNode, rel CatalogNode, o *options) (Table, error) {
	t := Table{
		UniqueID:     node.UniqueID,
		ResourceType: node.ResourceType,
		Database:     cmp.Or(rel.Metadata.Database, node.Database),
		Schema:       cmp.Or(rel.Metadata.Schema, node.Schema),
		Name:         cmp.Or(rel.Metadata.Name, node.relationName()),
		Description:  o.render(node.Description),
	}
	if t.ResourceType == "" {
		t.ResourceType = ResourceSource
	}
	if strings.TrimSpace(t.Schema) == "" {
		return Table{}, errors.NewArtifactFormatError("manifest", node.UniqueID, "schema", "missing")
	}
	if strings.TrimSpace(t.Name) == "" {
		return Table{}, errors.NewArtifactFormatError("manifest", node.UniqueID, "name", "missing")
	}

	docs := make(map[string]string, len(node.Columns))
	for key, col := range node.Columns {
		name := cmp.Or(col.Name, key)
		if strings.TrimSpace(name) == "" {
			return Table{}, errors.NewArtifactFormatError("manifest", node.UniqueID, "columns.name", "missing")
		}
		norm := Normalize(name)
		if _, dup := docs[norm]; dup {
			return Table{}, errors.NewArtifactFormatError("manifest", node.UniqueID, "columns",
				fmt.Sprintf("column %q declared more than once", name))
		}
		docs[norm] = col.Description
	}

	cols := make([]CatalogColumn, 0, len(rel.Columns))
	for key, col := range rel.Columns {
		if col.Name == "" {
			col.Name = key
		}
		if strings.TrimSpace(col.Name) == "" {
			return Table{}, errors.NewArtifactFormatError("catalog", node.UniqueID, "columns.name", "missing")
		}
		cols = append(cols, col)
	}
	slices.SortFunc(cols, func(a, b CatalogColumn) int {
		return cmp.Or(cmp.Compare(a.Index, b.Index), cmp.Compare(a.Name, b.Name))
	})

	seen := make(map[string]struct{}, len(cols))
	t.Columns = make([]Column, 0, len(cols))
	for _, col := range cols {
		norm := Normalize(col.Name)
		if _, dup := seen[norm]; dup {
			return Table{}, errors.NewArtifactFormatError("catalog", node.UniqueID, "columns",
				fmt.Sprintf("column %q materialized more than once", col.Name))
		}
		seen[norm] = struct{}{}

		desc := o.render(docs[norm])
		if desc == "" && o.defaults != nil {
			if d, ok := o.defaults.Lookup(col.Name); ok {
				desc = o.render(d)
			}
		}
		t.Columns = append(t.Columns, Column{
			Name:        col.Name,
			Description: desc,
			DataType:    col.Type,
		})
	}

	return t, nil
}

// render trims a description and optionally converts markdown to text.
func (o *options) render(desc string) string {
	desc = strings.TrimSpace(desc)
	if o.plainText && desc != "" {
		return PlainText(desc)
	}
	return desc
}
