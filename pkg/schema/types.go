package schema

// Column describes a single column of a tabular source.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	UniqueCount  int    `json:"unique_count,omitempty"`
	SampleValues []any  `json:"sample_values,omitempty"`

	// Numeric statistics, present only for integer and number columns
	// that hold at least one value.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// Schema is the inferred shape of a data source. For a table-level
// inference Columns and SampleRows are populated; when a PostgreSQL
// source is inspected without a table name only Tables is set.
type Schema struct {
	TableName  string           `json:"table_name,omitempty"`
	Columns    []Column         `json:"columns,omitempty"`
	RowCount   int              `json:"row_count,omitempty"`
	SampleRows []map[string]any `json:"sample_rows,omitempty"`
	Tables     []string         `json:"tables,omitempty"`
}

// Column type names produced by CSV inference.
const (
	TypeInteger  = "integer"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeDatetime = "datetime"
	TypeText     = "text"
)
