package superset

import (
	"strings"
)

// Dataset kinds.
const (
	KindPhysical = "physical"
	KindVirtual  = "virtual"
)

// Dataset is a Superset dataset. Columns and Owners are only populated by
// GetDataset; listing returns them empty.
type Dataset struct {
	ID          int
	Kind        string
	DatabaseID  int
	Database    string
	Schema      string
	TableName   string
	Description *string
	Owners      []int
	Columns     []Column
}

// IsPhysical reports whether the dataset is backed by a table.
func (d Dataset) IsPhysical() bool {
	return d.Kind == "" || d.Kind == KindPhysical
}

// String returns database.schema.table.
func (d Dataset) String() string {
	return strings.Join([]string{d.Database, d.Schema, d.TableName}, ".")
}

// Column is a dataset column.
type Column struct {
	ID          int
	DatasetID   int
	Name        string
	Description *string
	Expression  string
	Type        string
}

// IsCalculated reports whether the column is defined by a SQL expression.
func (c Column) IsCalculated() bool {
	return strings.TrimSpace(c.Expression) != ""
}

// Text returns the description, treating null as empty.
func (c Column) Text() string {
	if c.Description == nil {
		return ""
	}
	return *c.Description
}

// Text returns the dataset description, treating null as empty.
func (d Dataset) Text() string {
	if d.Description == nil {
		return ""
	}
	return *d.Description
}

// wire formats

type databaseJSON struct {
	ID   int    `json:"id"`
	Name string `json:"database_name"`
}

type ownerJSON struct {
	ID int `json:"id"`
}

type columnJSON struct {
	ID          int     `json:"id"`
	ColumnName  string  `json:"column_name"`
	Description *string `json:"description"`
	Expression  *string `json:"expression"`
	Type        string  `json:"type"`
}

type datasetJSON struct {
	ID          int          `json:"id"`
	Kind        string       `json:"kind"`
	TableName   string       `json:"table_name"`
	Schema      string       `json:"schema"`
	Description *string      `json:"description"`
	Database    databaseJSON `json:"database"`
	Columns     []columnJSON `json:"columns"`
	Owners      []ownerJSON  `json:"owners"`
}

func (j datasetJSON) dataset() Dataset {
	d := Dataset{
		ID:          j.ID,
		Kind:        j.Kind,
		DatabaseID:  j.Database.ID,
		Database:    j.Database.Name,
		Schema:      j.Schema,
		TableName:   j.TableName,
		Description: j.Description,
	}
	for _, o := range j.Owners {
		d.Owners = append(d.Owners, o.ID)
	}
	for _, c := range j.Columns {
		col := Column{
			ID:          c.ID,
			DatasetID:   j.ID,
			Name:        c.ColumnName,
			Description: c.Description,
			Type:        c.Type,
		}
		if c.Expression != nil {
			col.Expression = *c.Expression
		}
		d.Columns = append(d.Columns, col)
	}
	return d
}

type listResponse struct {
	Count  int           `json:"count"`
	Result []datasetJSON `json:"result"`
}

type showResponse struct {
	ID     int         `json:"id"`
	Result datasetJSON `json:"result"`
}

type listFilter struct {
	Col   string `json:"col"`
	Opr   string `json:"opr"`
	Value any    `json:"value"`
}

type listQuery struct {
	Page           int          `json:"page"`
	PageSize       int          `json:"page_size"`
	OrderColumn    string       `json:"order_column"`
	OrderDirection string       `json:"order_direction"`
	Filters        []listFilter `json:"filters,omitempty"`
}

type columnUpdate struct {
	ID          int     `json:"id"`
	ColumnName  string  `json:"column_name"`
	Description *string `json:"description"`
	Expression  *string `json:"expression,omitempty"`
}

type datasetUpdate struct {
	Description *string        `json:"description,omitempty"`
	Columns     []columnUpdate `json:"columns,omitempty"`
	Owners      []int          `json:"owners"`
}
