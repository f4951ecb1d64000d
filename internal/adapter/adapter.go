// Package adapter translates vendor-specific driver and catalog conventions
// into the uniform shapes used by the gateway. Each supported engine
// implements Adapter against its own information-schema equivalent; the rest
// of the gateway never sees a vendor type.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Target holds connection parameters for an engine. Which fields are used
// depends on the adapter (SQLite only reads Path and Options).
type Target struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Path     string
	Options  string
}

// Table describes a single table or view in catalog order.
type Table struct {
	Name    string
	Schema  string
	Type    string // "TABLE", "VIEW", "SYSTEM TABLE", "SYSTEM VIEW"
	Remarks string
}

// Column describes a single column of a table.
type Column struct {
	Name     string
	Type     string
	Size     int // character length or numeric precision, 0 when unknown
	Nullable bool
	Default  string
	Remarks  string
}

// ForeignKey describes one column of an outgoing foreign key reference.
type ForeignKey struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Adapter is implemented once per supported database engine.
type Adapter interface {
	// DriverName returns the database/sql driver name to open handles with.
	DriverName() string

	// DSN builds the driver connection string from the target.
	DSN(t Target) (string, error)

	// SessionSetup applies read-only session settings to a fresh handle.
	SessionSetup(ctx context.Context, db *sql.DB) error

	// ValidateStatement applies engine-specific checks on top of the
	// generic read-only policy. Returns nil when the engine has no
	// additional opinion.
	ValidateStatement(sql string) error

	// DefaultSchema resolves the session's current schema, used when a
	// caller omits one. Never triggers a cross-schema scan.
	DefaultSchema(ctx context.Context, db *sql.DB) (string, error)

	// ListTables returns the tables and views of the given schema. System
	// objects are included only when includeSystem is set.
	ListTables(ctx context.Context, db *sql.DB, schema string, includeSystem bool) ([]Table, error)

	// TableExists reports whether the named table or view exists in the
	// schema. Lets callers distinguish a missing table from one with no
	// metadata rows.
	TableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error)

	// Columns returns the table's columns in ordinal position order.
	Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error)

	// PrimaryKeys returns the primary key column names in key order.
	PrimaryKeys(ctx context.Context, db *sql.DB, schema, table string) ([]string, error)

	// ForeignKeys returns the table's outgoing foreign key references only;
	// keys referencing the table from elsewhere are not reported.
	ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKey, error)
}

// ForDriver returns the adapter for a configured driver name.
func ForDriver(name string) (Adapter, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return &Postgres{}, nil
	case "mysql":
		return &MySQL{}, nil
	case "sqlite", "sqlite3":
		return &SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (supported: %s)", name, strings.Join(Drivers(), ", "))
	}
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{"postgres", "mysql", "sqlite"}
}

// filterSystemEntries drops SYSTEM TABLE and SYSTEM VIEW entries unless the
// caller asked for them. A caller may name a system schema explicitly, so
// exclusion keys on the entry's computed kind, not on the schema path.
func filterSystemEntries(tables []Table, includeSystem bool) []Table {
	if includeSystem {
		return tables
	}
	filtered := tables[:0]
	for _, t := range tables {
		if strings.HasPrefix(t.Type, "SYSTEM") {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// typeSize extracts the parenthesized length from a declared type such as
// VARCHAR(50) or DECIMAL(10,2). Returns 0 when the type carries none.
func typeSize(declared string) int {
	open := strings.IndexByte(declared, '(')
	if open < 0 {
		return 0
	}
	rest := declared[open+1:]
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		return 0
	}
	size, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return size
}
