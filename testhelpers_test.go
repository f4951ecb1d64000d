package dbmcp_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	dbmcp "github.com/klauseduard/jdbc-mcp"
	"github.com/rs/zerolog"
)

// seedRowCount is how many rows the numbers table carries. Chosen to sit
// above the hard row cap so truncation is observable at every limit.
const seedRowCount = 1050

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// seedTestDB creates a sqlite database file with a small library schema and
// a numbers table of seedRowCount rows, and returns its path.
func seedTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE authors (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL
        )`,
		`CREATE TABLE books (
            id INTEGER PRIMARY KEY,
            author_id INTEGER NOT NULL REFERENCES authors(id),
            title VARCHAR(100) NOT NULL,
            price DECIMAL(8,2)
        )`,
		`CREATE TABLE numbers (n INTEGER NOT NULL)`,
		`INSERT INTO authors (name) VALUES ('Ursula'), ('Octavia')`,
		`INSERT INTO books (id, author_id, title, price) VALUES
            (1, 1, 'The Dispossessed', 9.99),
            (2, 2, 'Kindred', 12.50)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup statement failed: %v\n%s", err, stmt)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin seed transaction: %v", err)
	}
	for i := 1; i <= seedRowCount; i++ {
		if _, err := tx.Exec("INSERT INTO numbers (n) VALUES (?)", i); err != nil {
			t.Fatalf("failed to seed numbers: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit seed transaction: %v", err)
	}
	return path
}

func defaultConfig(path string) dbmcp.Config {
	return dbmcp.Config{
		Connection: dbmcp.ConnectionConfig{
			Driver: "sqlite",
			Path:   path,
		},
	}
}

func newTestGateway(t *testing.T, config dbmcp.Config) *dbmcp.DBMcp {
	t.Helper()
	d, err := dbmcp.New(config, testLogger())
	if err != nil {
		t.Fatalf("failed to create DBMcp: %v", err)
	}
	t.Cleanup(func() { d.Close(context.Background()) })
	return d
}

// newSeededGateway is the common case: a gateway over a freshly seeded database.
func newSeededGateway(t *testing.T) *dbmcp.DBMcp {
	t.Helper()
	return newTestGateway(t, defaultConfig(seedTestDB(t)))
}
