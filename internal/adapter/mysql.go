package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	// Registers the "mysql" database/sql driver.
	_ "github.com/go-sql-driver/mysql"
)

// MySQL implements Adapter for MySQL and MariaDB.
type MySQL struct{}

func (a *MySQL) DriverName() string { return "mysql" }

// DSN builds a go-sql-driver connection string. transaction_read_only rides
// along as a DSN system variable so it is applied to every physical
// connection the pool opens, not just the first session.
func (a *MySQL) DSN(t Target) (string, error) {
	var missing []string
	if t.Host == "" {
		missing = append(missing, "host")
	}
	if t.Database == "" {
		missing = append(missing, "database")
	}
	if t.User == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("mysql: missing required connection fields: %v", missing)
	}
	port := t.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&transaction_read_only=1", t.User, t.Password, t.Host, port, t.Database)
	if t.Options != "" {
		dsn += "&" + t.Options
	}
	return dsn, nil
}

// SessionSetup is a no-op: the driver sets transaction_read_only from the
// DSN on every physical connection, including ones the pool re-dials later.
func (a *MySQL) SessionSetup(ctx context.Context, db *sql.DB) error { return nil }

type forbiddenPattern struct {
	pattern *regexp.Regexp
	desc    string
}

// mysqlForbidden blocks file access, user variables, and stalling functions
// the generic keyword scan cannot see. Matched against the raw statement.
var mysqlForbidden = []forbiddenPattern{
	{regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`), "INTO OUTFILE"},
	{regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`), "INTO DUMPFILE"},
	{regexp.MustCompile(`(?i)\bINTO\s+@`), "INTO @variable"},
	{regexp.MustCompile(`(?i)\bLOAD_FILE\s*\(`), "LOAD_FILE()"},
	{regexp.MustCompile(`(?i)\bSLEEP\s*\(`), "SLEEP()"},
	{regexp.MustCompile(`(?i)\bBENCHMARK\s*\(`), "BENCHMARK()"},
	{regexp.MustCompile(`(?i)\bGET_LOCK\s*\(`), "GET_LOCK()"},
	{regexp.MustCompile(`(?i)\bRELEASE_LOCK\s*\(`), "RELEASE_LOCK()"},
	{regexp.MustCompile(`(?i)\bMASTER_POS_WAIT\s*\(`), "MASTER_POS_WAIT()"},
	{regexp.MustCompile(`(?i)\bSOURCE_POS_WAIT\s*\(`), "SOURCE_POS_WAIT()"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])LOAD(?:[^A-Za-z0-9_]|$)`), "LOAD"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])HANDLER(?:[^A-Za-z0-9_]|$)`), "HANDLER"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])RENAME(?:[^A-Za-z0-9_]|$)`), "RENAME"},
}

func (a *MySQL) ValidateStatement(sqlText string) error {
	for _, fp := range mysqlForbidden {
		if fp.pattern.MatchString(sqlText) {
			return fmt.Errorf("statement contains forbidden MySQL construct: %s", fp.desc)
		}
	}
	return nil
}

func (a *MySQL) DefaultSchema(ctx context.Context, db *sql.DB) (string, error) {
	var schema sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schema); err != nil {
		return "", fmt.Errorf("failed to resolve current schema: %w", err)
	}
	if !schema.Valid || schema.String == "" {
		return "", fmt.Errorf("no default schema selected for this session")
	}
	return schema.String, nil
}

const mysqlListTablesSQL = `
SELECT table_schema,
       table_name,
       CASE
           WHEN table_schema IN ('mysql', 'information_schema', 'performance_schema', 'sys') THEN
               CASE WHEN table_type LIKE '%VIEW' THEN 'SYSTEM VIEW' ELSE 'SYSTEM TABLE' END
           WHEN table_type = 'VIEW' THEN 'VIEW'
           ELSE 'TABLE'
       END,
       COALESCE(table_comment, '')
FROM information_schema.tables
WHERE table_schema = ?
   OR (? AND table_schema IN ('mysql', 'information_schema', 'performance_schema', 'sys'))
ORDER BY table_schema, table_name
`

func (a *MySQL) ListTables(ctx context.Context, db *sql.DB, schema string, includeSystem bool) ([]Table, error) {
	rows, err := db.QueryContext(ctx, mysqlListTablesSQL, schema, includeSystem)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.Type, &t.Remarks); err != nil {
			return nil, fmt.Errorf("failed to scan table entry: %w", err)
		}
		tables = append(tables, t)
	}
	return filterSystemEntries(tables, includeSystem), rows.Err()
}

func (a *MySQL) TableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	const q = `SELECT EXISTS (
        SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?
    )`
	var exists bool
	if err := db.QueryRowContext(ctx, q, schema, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

const mysqlColumnsSQL = `
SELECT column_name,
       data_type,
       COALESCE(character_maximum_length, numeric_precision, 0),
       is_nullable = 'YES',
       COALESCE(column_default, ''),
       COALESCE(column_comment, '')
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position
`

func (a *MySQL) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, mysqlColumnsSQL, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Size, &col.Nullable, &col.Default, &col.Remarks); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

const mysqlPrimaryKeysSQL = `
SELECT column_name
FROM information_schema.key_column_usage
WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
ORDER BY ordinal_position
`

func (a *MySQL) PrimaryKeys(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, mysqlPrimaryKeysSQL, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch primary keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		keys = append(keys, name)
	}
	return keys, rows.Err()
}

const mysqlForeignKeysSQL = `
SELECT constraint_name,
       column_name,
       referenced_table_name,
       referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = ? AND table_name = ? AND referenced_table_name IS NOT NULL
ORDER BY constraint_name, ordinal_position
`

func (a *MySQL) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, mysqlForeignKeysSQL, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch foreign keys: %w", err)
	}
	defer rows.Close()

	var keys []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		keys = append(keys, fk)
	}
	return keys, rows.Err()
}
