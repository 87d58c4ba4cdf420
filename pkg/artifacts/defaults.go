package artifacts

import (
	"github.com/goccy/go-yaml"

	"github.com/agentstation/docsync/pkg/errors"
)

// DefaultDescriptions is a fallback description overlay keyed by column
// name:
//
//	columns:
//	  created_at:
//	    desc: Time the row was created.
type DefaultDescriptions struct {
	Columns map[string]DefaultDescription `yaml:"columns"`

	index map[string]string
}

// DefaultDescription is one overlay entry.
type DefaultDescription struct {
	Desc string `yaml:"desc"`
}

// ParseDefaultDescriptions decodes a YAML overlay.
func ParseDefaultDescriptions(data []byte) (*DefaultDescriptions, error) {
	var d DefaultDescriptions
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.WrapArtifact("default descriptions", err)
	}
	d.index = indexDescriptions(d.Columns)
	return &d, nil
}

// Lookup returns the non-empty fallback description for a column.
func (d *DefaultDescriptions) Lookup(column string) (string, bool) {
	if d == nil {
		return "", false
	}
	index := d.index
	if index == nil {
		index = indexDescriptions(d.Columns)
	}
	desc, ok := index[Normalize(column)]
	return desc, ok && desc != ""
}

func indexDescriptions(cols map[string]DefaultDescription) map[string]string {
	index := make(map[string]string, len(cols))
	for name, entry := range cols {
		index[Normalize(name)] = entry.Desc
	}
	return index
}

// Len returns the number of overlay entries.
func (d *DefaultDescriptions) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}
