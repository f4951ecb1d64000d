package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// SQLite implements Adapter for SQLite database files. SQLite has a single
// namespace, so the schema argument is accepted but not used for filtering;
// descriptors report the conventional "main" schema.
type SQLite struct{}

func (a *SQLite) DriverName() string { return "sqlite" }

// DSN enforces read-only mode via the mode=ro URI parameter unless the
// caller's options already pin a mode. The file: scheme is required for
// SQLite to interpret URI parameters at all; a bare path would treat
// "?mode=ro" as part of the filename.
func (a *SQLite) DSN(t Target) (string, error) {
	if t.Path == "" {
		return "", fmt.Errorf("sqlite: database file path is required")
	}
	dsn := t.Path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if t.Options != "" {
		if strings.Contains(dsn, "?") {
			dsn += "&" + t.Options
		} else {
			dsn += "?" + t.Options
		}
	}
	if !strings.Contains(dsn, "mode=") {
		if strings.Contains(dsn, "?") {
			dsn += "&mode=ro"
		} else {
			dsn += "?mode=ro"
		}
	}
	return dsn, nil
}

// SessionSetup adds PRAGMA query_only on top of the read-only open mode.
func (a *SQLite) SessionSetup(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "PRAGMA query_only = ON")
	return err
}

// sqliteForbidden blocks extension loading, file writes, and database
// reshaping the generic keyword scan cannot see.
var sqliteForbidden = []forbiddenPattern{
	{regexp.MustCompile(`(?i)\bload_extension\s*\(`), "load_extension()"},
	{regexp.MustCompile(`(?i)\bwritefile\s*\(`), "writefile()"},
	{regexp.MustCompile(`(?i)\breadfile\s*\(`), "readfile()"},
	{regexp.MustCompile(`(?i)\bfts3_tokenizer\s*\(`), "fts3_tokenizer()"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])ATTACH(?:[^A-Za-z0-9_]|$)`), "ATTACH"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])DETACH(?:[^A-Za-z0-9_]|$)`), "DETACH"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])VACUUM(?:[^A-Za-z0-9_]|$)`), "VACUUM"},
	{regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])REINDEX(?:[^A-Za-z0-9_]|$)`), "REINDEX"},
	{regexp.MustCompile(`(?i)\bPRAGMA\s+\w+\s*=`), "PRAGMA write"},
}

func (a *SQLite) ValidateStatement(sqlText string) error {
	for _, fp := range sqliteForbidden {
		if fp.pattern.MatchString(sqlText) {
			return fmt.Errorf("statement contains forbidden SQLite construct: %s", fp.desc)
		}
	}
	return nil
}

func (a *SQLite) DefaultSchema(ctx context.Context, db *sql.DB) (string, error) {
	return "main", nil
}

const sqliteListTablesSQL = `
SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name
`

func (a *SQLite) ListTables(ctx context.Context, db *sql.DB, schema string, includeSystem bool) ([]Table, error) {
	rows, err := db.QueryContext(ctx, sqliteListTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table entry: %w", err)
		}
		entry := Table{Name: name, Schema: "main"}
		switch {
		case strings.HasPrefix(name, "sqlite_"):
			if !includeSystem {
				continue
			}
			entry.Type = "SYSTEM TABLE"
		case kind == "view":
			entry.Type = "VIEW"
		default:
			entry.Type = "TABLE"
		}
		tables = append(tables, entry)
	}
	return tables, rows.Err()
}

func (a *SQLite) TableExists(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	const q = `SELECT EXISTS (
        SELECT 1 FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?
    )`
	var exists bool
	if err := db.QueryRowContext(ctx, q, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

// quoteLiteral escapes a string for safe embedding in a PRAGMA argument,
// which cannot use ? placeholders.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (a *SQLite) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch columns: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declType   string
			dfltValue        sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, Column{
			Name:     name,
			Type:     declType,
			Size:     typeSize(declType),
			Nullable: notNull == 0,
			Default:  dfltValue.String,
		})
	}
	return cols, rows.Err()
}

func (a *SQLite) PrimaryKeys(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch primary keys: %w", err)
	}
	defer rows.Close()

	type pkColumn struct {
		name string
		ord  int
	}
	var pks []pkColumn
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declType   string
			dfltValue        sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if pk > 0 {
			pks = append(pks, pkColumn{name: name, ord: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(pks, func(i, j int) bool { return pks[i].ord < pks[j].ord })
	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = pk.name
	}
	return keys, nil
}

func (a *SQLite) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch foreign keys: %w", err)
	}
	defer rows.Close()

	var keys []ForeignKey
	for rows.Next() {
		var (
			id, seq                 int
			refTable, from          string
			to                      sql.NullString
			onUpdate, onDelete, mat string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &mat); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		// SQLite foreign keys are unnamed, so synthesize a stable name. An
		// empty referenced column means the parent table's primary key.
		keys = append(keys, ForeignKey{
			Name:             fmt.Sprintf("fk_%s_%d", table, id),
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to.String,
		})
	}
	return keys, rows.Err()
}
