package conn

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// newTestDB creates a sqlite database file with one populated table and
// returns its path.
func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO items (name) VALUES ('a'), ('b')"); err != nil {
		t.Fatalf("failed to insert rows: %v", err)
	}
	return path
}

func newTestManager(t *testing.T, onOpen SessionFunc) *Manager {
	t.Helper()
	return NewManager(Config{
		DriverName: "sqlite",
		DSN:        "file:" + newTestDB(t) + "?mode=ro",
		OnOpen:     onOpen,
	}, zerolog.Nop())
}

func TestAcquire_LazyAndMemoized(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)

	if m.Healthy() {
		t.Fatal("expected no handle before first Acquire")
	}

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if first != second {
		t.Fatal("expected Acquire to return the same handle")
	}
	if !m.Healthy() {
		t.Fatal("expected manager to report healthy after Acquire")
	}
}

func TestAcquire_ReplacesUnhealthyHandle(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	m.MarkUnhealthy()
	if m.Healthy() {
		t.Fatal("expected manager to report unhealthy after MarkUnhealthy")
	}

	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after MarkUnhealthy failed: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh handle after MarkUnhealthy")
	}
	if err := second.Ping(); err != nil {
		t.Fatalf("fresh handle not usable: %v", err)
	}
}

func TestMarkUnhealthy_NoopBeforeOpen(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)

	m.MarkUnhealthy()
	if m.Healthy() {
		t.Fatal("expected unhealthy with no handle open")
	}
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !m.Healthy() {
		t.Fatal("expected healthy after Acquire")
	}
}

func TestOnOpen_RunsOncePerHandle(t *testing.T) {
	t.Parallel()
	calls := 0
	m := newTestManager(t, func(ctx context.Context, db *sql.DB) error {
		calls++
		return nil
	})

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected OnOpen to run once for a reused handle, ran %d times", calls)
	}

	m.MarkUnhealthy()
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected OnOpen to run again for the replacement handle, ran %d times", calls)
	}
}

func TestAcquire_ConnectFailure(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DriverName: "sqlite",
		DSN:        "file:" + filepath.Join(t.TempDir(), "missing.db") + "?mode=ro",
	}, zerolog.Nop())

	if _, err := m.Acquire(context.Background()); err == nil {
		t.Fatal("expected Acquire to fail for a missing read-only database")
	}
	if m.Healthy() {
		t.Fatal("expected manager to stay unhealthy after a failed Acquire")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)

	// Safe before anything was opened.
	m.Release()

	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	m.Release()
	m.Release()
	if m.Healthy() {
		t.Fatal("expected no live handle after Release")
	}

	// A released manager can open again.
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after Release failed: %v", err)
	}
}

func TestNewManager_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		config Config
	}{
		{"empty driver", Config{DSN: "x"}},
		{"empty dsn", Config{DriverName: "sqlite"}},
		{"negative max conns", Config{DriverName: "sqlite", DSN: "x", MaxConns: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			NewManager(tc.config, zerolog.Nop())
		})
	}
}
