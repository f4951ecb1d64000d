package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Postgres implements Adapter for PostgreSQL via the pgx stdlib driver.
type Postgres struct{}

func (a *Postgres) DriverName() string { return "pgx" }

// DSN builds a keyword/value connection string. Read-only enforcement rides
// along as a startup parameter so it applies to every connection the handle
// opens, not just the first session.
func (a *Postgres) DSN(t Target) (string, error) {
	if t.Database == "" {
		return "", fmt.Errorf("postgres: database name is required")
	}
	parts := []string{}
	if t.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", t.Host))
	}
	if t.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", t.Port))
	}
	parts = append(parts, fmt.Sprintf("dbname=%s", t.Database))
	if t.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", t.User))
	}
	if t.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", t.Password))
	}
	parts = append(parts, "options='-c default_transaction_read_only=on'")
	if t.Options != "" {
		parts = append(parts, t.Options)
	}
	return strings.Join(parts, " "), nil
}

// SessionSetup is a no-op: read-only is enforced through the DSN startup
// parameter.
func (a *Postgres) SessionSetup(ctx context.Context, db *sql.DB) error { return nil }

// ValidateStatement parses with the real PostgreSQL grammar and accepts only
// a single retrieval statement. Runs after the generic read-only check, so
// policy gating (CTE, EXPLAIN, SHOW) has already happened.
func (a *Postgres) ValidateStatement(sqlText string) error {
	result, err := pg_query.Parse(sqlText)
	if err != nil {
		return fmt.Errorf("SQL parse error: %w", err)
	}
	if len(result.Stmts) == 0 {
		return fmt.Errorf("SQL parse error: empty statement")
	}
	if len(result.Stmts) > 1 {
		return fmt.Errorf("multiple statements are not allowed: found %d statements", len(result.Stmts))
	}
	return checkRetrievalNode(result.Stmts[0].Stmt)
}

// checkRetrievalNode verifies a parsed node is a pure retrieval, recursing
// into EXPLAIN targets and CTE subqueries.
func checkRetrievalNode(node *pg_query.Node) error {
	if node == nil {
		return nil
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		if n.SelectStmt.IntoClause != nil {
			return fmt.Errorf("SELECT INTO creates a table and is not allowed")
		}
		if wc := n.SelectStmt.WithClause; wc != nil {
			for _, cte := range wc.Ctes {
				cteNode, ok := cte.Node.(*pg_query.Node_CommonTableExpr)
				if !ok {
					continue
				}
				if err := checkRetrievalNode(cteNode.CommonTableExpr.Ctequery); err != nil {
					return err
				}
			}
		}
		return nil
	case *pg_query.Node_ExplainStmt:
		return checkRetrievalNode(n.ExplainStmt.Query)
	case *pg_query.Node_VariableShowStmt:
		return nil
	default:
		return fmt.Errorf("statement is not a read-only retrieval")
	}
}

const pgDefaultSchemaSQL = `SELECT current_schema()`

func (a *Postgres) DefaultSchema(ctx context.Context, db *sql.DB) (string, error) {
	var schema sql.NullString
	if err := db.QueryRowContext(ctx, pgDefaultSchemaSQL).Scan(&schema); err != nil {
		return "", fmt.Errorf("failed to resolve current schema: %w", err)
	}
	if !schema.Valid || schema.String == "" {
		return "public", nil
	}
	return schema.String, nil
}

const pgListTablesSQL = `
SELECT n.nspname,
       c.relname,
       CASE
           WHEN n.nspname IN ('pg_catalog', 'information_schema') AND c.relkind IN ('v', 'm') THEN 'SYSTEM VIEW'
           WHEN n.nspname IN ('pg_catalog', 'information_schema') THEN 'SYSTEM TABLE'
           WHEN c.relkind IN ('v', 'm') THEN 'VIEW'
           ELSE 'TABLE'
       END,
       COALESCE(pg_catalog.obj_description(c.oid, 'pg_class'), '')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('r', 'p', 'v', 'm', 'f')
  AND (n.nspname = $1 OR ($2 AND n.nspname IN ('pg_catalog', 'information_schema')))
ORDER BY n.nspname, c.relname
`

func (a *Postgres) ListTables(ctx context.Context, db *sql.DB, schema string, includeSystem bool) ([]Table, error) {
	rows, err := db.QueryContext(ctx, pgListTablesSQL, schema, includeSystem)
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

const pgTableExistsSQL = `
SELECT EXISTS (
    SELECT 1
    FROM pg_catalog.pg_class c
    JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
    WHERE n.nspname = $1 AND c.relname = $2
      AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
)
`

func (a *Postgres) TableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, pgTableExistsSQL, schema, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

const pgColumnsSQL = `
SELECT c.column_name,
       c.data_type,
       COALESCE(c.character_maximum_length, c.numeric_precision, 0),
       c.is_nullable = 'YES',
       COALESCE(c.column_default, ''),
       COALESCE(pg_catalog.col_description(pgc.oid, c.ordinal_position::int), '')
FROM information_schema.columns c
JOIN pg_catalog.pg_namespace n ON n.nspname = c.table_schema
JOIN pg_catalog.pg_class pgc ON pgc.relname = c.table_name AND pgc.relnamespace = n.oid
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position
`

func (a *Postgres) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, pgColumnsSQL, schema, table)
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

const pgPrimaryKeysSQL = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
    AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = $1
  AND tc.table_name = $2
ORDER BY kcu.ordinal_position
`

func (a *Postgres) PrimaryKeys(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, pgPrimaryKeysSQL, schema, table)
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

const pgForeignKeysSQL = `
SELECT con.conname,
       la.attname,
       fc.relname,
       ra.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class fc ON fc.oid = con.confrelid
JOIN LATERAL generate_subscripts(con.conkey, 1) AS pos ON true
JOIN pg_catalog.pg_attribute la ON la.attrelid = con.conrelid AND la.attnum = con.conkey[pos]
JOIN pg_catalog.pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = con.confkey[pos]
WHERE con.contype = 'f'
  AND n.nspname = $1
  AND c.relname = $2
ORDER BY con.conname, pos
`

func (a *Postgres) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, pgForeignKeysSQL, schema, table)
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
