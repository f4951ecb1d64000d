package dbmcp

import (
	"context"
	"fmt"
	"time"
)

// GetTables lists the tables and views of a schema. When input.Schema is
// empty, the session's default schema is used. System catalog objects are
// included only when input.IncludeSystem is set.
func (d *DBMcp) GetTables(ctx context.Context, input GetTablesInput) (*GetTablesOutput, error) {
	startTime := time.Now()

	select {
	case d.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, executionError(ctx.Err(), fmt.Sprintf("failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting", cap(d.semaphore)))
	}
	defer func() { <-d.semaphore }()

	queryCtx, cancel := context.WithTimeout(ctx, d.getTablesTimeout())
	defer cancel()

	db, err := d.conns.Acquire(queryCtx)
	if err != nil {
		return nil, connectionError(err, "failed to connect to database")
	}

	schema := input.Schema
	if schema == "" {
		schema, err = d.adapter.DefaultSchema(queryCtx, db)
		if err != nil {
			return nil, d.statementError(err, "failed to resolve default schema")
		}
	}

	tables, err := d.adapter.ListTables(queryCtx, db, schema, input.IncludeSystem)
	if err != nil {
		return nil, d.statementError(err, "failed to list tables")
	}

	entries := make([]TableEntry, len(tables))
	for i, t := range tables {
		entries[i] = TableEntry{
			Name:    t.Name,
			Schema:  t.Schema,
			Type:    t.Type,
			Remarks: t.Remarks,
		}
	}

	d.logger.Info().
		Str("schema", schema).
		Dur("duration", time.Since(startTime)).
		Int("count", len(entries)).
		Msg("tables listed")

	return &GetTablesOutput{Tables: entries, Count: len(entries)}, nil
}

// GetColumns describes a single table: its columns in ordinal order, primary
// key columns in key order, and outgoing foreign key references. Returns a
// not_found error when the table does not exist, so callers can tell a
// missing table apart from an empty one.
func (d *DBMcp) GetColumns(ctx context.Context, input GetColumnsInput) (*GetColumnsOutput, error) {
	startTime := time.Now()

	if input.Table == "" {
		return nil, validationError("table_name must be non-empty")
	}

	select {
	case d.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, executionError(ctx.Err(), fmt.Sprintf("failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting", cap(d.semaphore)))
	}
	defer func() { <-d.semaphore }()

	queryCtx, cancel := context.WithTimeout(ctx, d.getColumnsTimeout())
	defer cancel()

	db, err := d.conns.Acquire(queryCtx)
	if err != nil {
		return nil, connectionError(err, "failed to connect to database")
	}

	schema := input.Schema
	if schema == "" {
		schema, err = d.adapter.DefaultSchema(queryCtx, db)
		if err != nil {
			return nil, d.statementError(err, "failed to resolve default schema")
		}
	}

	exists, err := d.adapter.TableExists(queryCtx, db, schema, input.Table)
	if err != nil {
		return nil, d.statementError(err, "failed to check table existence")
	}
	if !exists {
		return nil, notFoundError(fmt.Sprintf("table not found: %s.%s", schema, input.Table))
	}

	cols, err := d.adapter.Columns(queryCtx, db, schema, input.Table)
	if err != nil {
		return nil, d.statementError(err, "failed to fetch columns")
	}
	pks, err := d.adapter.PrimaryKeys(queryCtx, db, schema, input.Table)
	if err != nil {
		return nil, d.statementError(err, "failed to fetch primary keys")
	}
	fks, err := d.adapter.ForeignKeys(queryCtx, db, schema, input.Table)
	if err != nil {
		return nil, d.statementError(err, "failed to fetch foreign keys")
	}

	out := &GetColumnsOutput{
		Table:       input.Table,
		Schema:      schema,
		Columns:     make([]ColumnInfo, len(cols)),
		PrimaryKeys: pks,
		ForeignKeys: make([]ForeignKeyInfo, len(fks)),
	}
	if out.PrimaryKeys == nil {
		out.PrimaryKeys = []string{}
	}
	for i, c := range cols {
		out.Columns[i] = ColumnInfo{
			Name:     c.Name,
			Type:     c.Type,
			Size:     c.Size,
			Nullable: c.Nullable,
			Default:  c.Default,
			Remarks:  c.Remarks,
		}
	}
	for i, fk := range fks {
		out.ForeignKeys[i] = ForeignKeyInfo{
			Name:             fk.Name,
			Column:           fk.Column,
			ReferencedTable:  fk.ReferencedTable,
			ReferencedColumn: fk.ReferencedColumn,
		}
	}

	d.logger.Info().
		Str("schema", schema).
		Str("table", input.Table).
		Dur("duration", time.Since(startTime)).
		Int("columns", len(out.Columns)).
		Msg("table described")

	return out, nil
}
