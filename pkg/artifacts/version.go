package artifacts

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/agentstation/docsync/pkg/errors"
)

// Supported artifact schema versions.
const (
	MinManifestVersion = 4
	MaxManifestVersion = 12
	CatalogVersion     = 1
)

// schemaVersionPattern matches e.g. https://schemas.getdbt.com/dbt/manifest/v12.json.
var schemaVersionPattern = regexp.MustCompile(`/(manifest|catalog)/v(\d+)(?:\.json)?$`)

// SchemaVersion extracts the artifact kind and version number from a
// dbt_schema_version URL.
func SchemaVersion(url string) (kind string, version int, ok bool) {
	m := schemaVersionPattern.FindStringSubmatch(url)
	if m == nil {
		return "", 0, false
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], v, true
}

// ValidateManifestVersion checks that the manifest schema is v4 through v12.
func ValidateManifestVersion(m *Manifest) error {
	kind, v, ok := SchemaVersion(m.Metadata.DbtSchemaVersion)
	switch {
	case !ok || kind != "manifest":
		return errors.NewArtifactFormatError("manifest", "", "metadata.dbt_schema_version",
			fmt.Sprintf("unrecognized schema version %q", m.Metadata.DbtSchemaVersion))
	case v < MinManifestVersion || v > MaxManifestVersion:
		return errors.NewArtifactFormatError("manifest", "", "metadata.dbt_schema_version",
			fmt.Sprintf("unsupported version v%d (supported v%d..v%d)", v, MinManifestVersion, MaxManifestVersion))
	}
	return nil
}

// ValidateCatalogVersion checks that the catalog schema is v1.
func ValidateCatalogVersion(c *Catalog) error {
	kind, v, ok := SchemaVersion(c.Metadata.DbtSchemaVersion)
	switch {
	case !ok || kind != "catalog":
		return errors.NewArtifactFormatError("catalog", "", "metadata.dbt_schema_version",
			fmt.Sprintf("unrecognized schema version %q", c.Metadata.DbtSchemaVersion))
	case v != CatalogVersion:
		return errors.NewArtifactFormatError("catalog", "", "metadata.dbt_schema_version",
			fmt.Sprintf("unsupported version v%d (supported v%d)", v, CatalogVersion))
	}
	return nil
}
