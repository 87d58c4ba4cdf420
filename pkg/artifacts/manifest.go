package artifacts

// Manifest is the subset of dbt's manifest.json read by docsync.
type Manifest struct {
	Metadata Metadata                `json:"metadata"`
	Nodes    map[string]ManifestNode `json:"nodes"`
	Sources  map[string]ManifestNode `json:"sources"`
}

// Metadata is the artifact header shared by manifest.json and catalog.json.
type Metadata struct {
	DbtSchemaVersion string `json:"dbt_schema_version"`
	DbtVersion       string `json:"dbt_version,omitempty"`
	AdapterType      string `json:"adapter_type,omitempty"`
}

// ManifestNode is a model, seed, snapshot, test or source definition.
// Sources carry Identifier; models carry Alias.
type ManifestNode struct {
	UniqueID     string                    `json:"unique_id"`
	ResourceType string                    `json:"resource_type"`
	Database     string                    `json:"database"`
	Schema       string                    `json:"schema"`
	Name         string                    `json:"name"`
	Alias        string                    `json:"alias,omitempty"`
	Identifier   string                    `json:"identifier,omitempty"`
	Description  string                    `json:"description"`
	Columns      map[string]ManifestColumn `json:"columns"`
}

// ManifestColumn is a column declared in a model's YAML properties.
type ManifestColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"data_type,omitempty"`
}

// relationName is the name the node is materialized under.
func (n ManifestNode) relationName() string {
	switch {
	case n.Alias != "":
		return n.Alias
	case n.Identifier != "":
		return n.Identifier
	}
	return n.Name
}

// Catalog is the subset of dbt's catalog.json read by docsync.
type Catalog struct {
	Metadata Metadata               `json:"metadata"`
	Nodes    map[string]CatalogNode `json:"nodes"`
	Sources  map[string]CatalogNode `json:"sources"`
}

// CatalogNode describes a relation as it exists in the warehouse.
type CatalogNode struct {
	UniqueID string                   `json:"unique_id"`
	Metadata CatalogRelation          `json:"metadata"`
	Columns  map[string]CatalogColumn `json:"columns"`
}

// CatalogRelation identifies the materialized relation.
type CatalogRelation struct {
	Type     string  `json:"type"`
	Database string  `json:"database"`
	Schema   string  `json:"schema"`
	Name     string  `json:"name"`
	Comment  *string `json:"comment,omitempty"`
}

// CatalogColumn is a materialized column.
type CatalogColumn struct {
	Type    string  `json:"type"`
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Comment *string `json:"comment,omitempty"`
}
