package dbmcp

import (
	"context"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"
	"unicode/utf8"
)

const (
	// DefaultMaxRows is the row cap applied when the caller does not request one.
	DefaultMaxRows = 100
	// HardMaxRows is the upper bound on any requested row cap.
	HardMaxRows = 1000
)

// ExecuteQuery validates input.SQL against the read-only rules and, if it
// passes, runs it and returns at most max_rows rows. HasMore reports whether
// the statement produced more rows than the cap. All failures return a typed
// *Error whose Kind distinguishes validation, connection, and execution
// problems.
func (d *DBMcp) ExecuteQuery(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	startTime := time.Now()
	sqlText := input.SQL

	// 1. Acquire semaphore (respects context cancellation to prevent deadlock)
	select {
	case d.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, executionError(ctx.Err(), fmt.Sprintf("failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting", cap(d.semaphore)))
	}
	defer func() { <-d.semaphore }()

	// 2. Check SQL length (before any parsing)
	if len(sqlText) > d.config.Query.MaxSQLLength {
		return nil, validationError(fmt.Sprintf("SQL query too long: %d bytes exceeds maximum of %d bytes", len(sqlText), d.config.Query.MaxSQLLength))
	}

	// 3. Generic read-only check
	if err := d.checker.Check(sqlText); err != nil {
		d.logger.Warn().Str("sql", truncateForLog(sqlText, 200)).Err(err).Msg("query rejected")
		return nil, validationError(err.Error())
	}

	// 4. Engine-specific check
	if err := d.adapter.ValidateStatement(sqlText); err != nil {
		d.logger.Warn().Str("sql", truncateForLog(sqlText, 200)).Err(err).Msg("query rejected")
		return nil, validationError(err.Error())
	}

	// 5. Clamp the row cap
	maxRows := clampMaxRows(input.MaxRows)

	// 6. Execute with timeout
	queryCtx, cancel := context.WithTimeout(ctx, d.queryTimeout())
	defer cancel()

	db, err := d.conns.Acquire(queryCtx)
	if err != nil {
		return nil, connectionError(err, "failed to connect to database")
	}

	rows, err := db.QueryContext(queryCtx, sqlText)
	if err != nil {
		return nil, d.statementError(err, "query failed")
	}

	// 7. Collect results up to the cap
	result, err := collectRows(rows, maxRows)
	if err != nil {
		return nil, d.statementError(err, "failed to read result rows")
	}

	// 8. Log successful query execution
	d.logger.Info().
		Str("sql", truncateForLog(sqlText, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", result.RowCount).
		Bool("has_more", result.HasMore).
		Msg("query executed")

	return result, nil
}

// clampMaxRows applies the default and hard caps to a requested row limit.
func clampMaxRows(requested int) int {
	if requested <= 0 {
		return DefaultMaxRows
	}
	if requested > HardMaxRows {
		return HardMaxRows
	}
	return requested
}

// rowScanner is the subset of *sql.Rows that collectRows needs.
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// collectRows reads up to maxRows rows, then probes for one more to set
// HasMore without materializing the rest of the result set.
func collectRows(rows rowScanner, maxRows int) (*QueryOutput, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	resultRows := make([][]any, 0)
	hasMore := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			hasMore = true
			break
		}
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for i := range values {
			row[i] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryOutput{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		HasMore:  hasMore,
	}, nil
}

// convertValue converts a database/sql-returned value to a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case []byte:
		// Text payloads pass through as strings; binary ones are base64 encoded.
		if utf8.Valid(val) {
			return string(val)
		}
		return base64.StdEncoding.EncodeToString(val)
	default:
		return val
	}
}

// convertFloat maps non-finite floats to the strings JSON cannot carry as numbers.
func convertFloat(f float64) any {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

// statementError classifies a failure from an in-flight statement. A dead
// transport surfaces as a connection error. A per-call timeout or caller
// cancellation is the statement's own failure and keeps the driver's
// diagnostic, but the handle is mid-statement and in doubt. Both cases
// discard the handle so the next call reconnects.
func (d *DBMcp) statementError(err error, message string) error {
	switch {
	case isCancellation(err):
		d.conns.MarkUnhealthy()
		return executionError(err, message)
	case isTransportFailure(err):
		d.conns.MarkUnhealthy()
		return connectionError(err, "database connection lost")
	default:
		return executionError(err, message)
	}
}

// isCancellation reports whether err stems from the call's own context
// rather than from the database.
func isCancellation(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// isTransportFailure reports whether err indicates the connection itself is
// broken, as opposed to a statement-level failure the server reported over a
// working connection.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	// context.DeadlineExceeded implements net.Error; a timed-out statement
	// is not a transport failure, so exclude it before the net.Error check.
	if isCancellation(err) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
