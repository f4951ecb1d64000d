package dbmcp

// QueryInput is the input for the execute_query tool.
type QueryInput struct {
	SQL     string `json:"query"`
	MaxRows int    `json:"max_rows"`
}

// QueryOutput is the result of a successful execute_query call. Rows are
// ordered slices whose values match the Columns order exactly; every value
// is normalized to a small set of portable kinds (nil, int64, float64, bool,
// string). HasMore is true iff more rows existed than were returned.
type QueryOutput struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	HasMore  bool     `json:"has_more"`
}

// GetTablesInput is the input for the get_tables tool.
type GetTablesInput struct {
	Schema        string `json:"schema,omitempty"`
	IncludeSystem bool   `json:"include_system"`
}

// TableEntry describes a single table or view.
type TableEntry struct {
	Name    string `json:"table_name"`
	Schema  string `json:"schema,omitempty"`
	Type    string `json:"type"` // "TABLE", "VIEW", "SYSTEM TABLE", "SYSTEM VIEW"
	Remarks string `json:"remarks,omitempty"`
}

// GetTablesOutput is the output of the get_tables tool.
type GetTablesOutput struct {
	Tables []TableEntry `json:"tables"`
	Count  int          `json:"count"`
}

// GetColumnsInput is the input for the get_columns tool.
type GetColumnsInput struct {
	Table  string `json:"table_name"`
	Schema string `json:"schema,omitempty"`
}

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Size     int    `json:"size"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Remarks  string `json:"remarks,omitempty"`
}

// ForeignKeyInfo describes one column of an outgoing foreign key.
type ForeignKeyInfo struct {
	Name             string `json:"fk_name"`
	Column           string `json:"fk_column"`
	ReferencedTable  string `json:"pk_table"`
	ReferencedColumn string `json:"pk_column"`
}

// GetColumnsOutput is the output of the get_columns tool. PrimaryKeys lists
// the key's column names in key order.
type GetColumnsOutput struct {
	Table       string           `json:"table_name"`
	Schema      string           `json:"schema,omitempty"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKeys []string         `json:"primary_keys"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys"`
}
