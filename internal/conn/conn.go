// Package conn owns the lifecycle of the gateway's database handle: lazy
// creation, reuse across calls, and guaranteed release. A handle marked
// unhealthy is discarded and replaced on the next acquisition instead of
// being reused.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SessionFunc configures a freshly opened handle, e.g. session-level
// read-only settings. Run once per open, before the handle is published.
type SessionFunc func(ctx context.Context, db *sql.DB) error

// Config holds everything the manager needs to open a handle.
type Config struct {
	DriverName string
	DSN        string
	// MaxConns bounds the handle's connection count. 1 (the default)
	// serializes statement execution on a single session.
	MaxConns int
	OnOpen   SessionFunc // optional
}

// Manager is the exclusive owner of one database handle.
// All methods are safe for concurrent use.
type Manager struct {
	config Config
	logger zerolog.Logger

	mu        sync.Mutex
	db        *sql.DB
	unhealthy bool
}

// NewManager creates a new Manager. Panics on invalid config; no I/O happens
// until the first Acquire.
func NewManager(config Config, logger zerolog.Logger) *Manager {
	if config.DriverName == "" {
		panic("conn: driver name must be non-empty")
	}
	if config.DSN == "" {
		panic("conn: dsn must be non-empty")
	}
	if config.MaxConns < 0 {
		panic("conn: max conns must be >= 0")
	}
	if config.MaxConns == 0 {
		config.MaxConns = 1
	}
	return &Manager{config: config, logger: logger}
}

// Acquire returns the live handle, opening one lazily on first use. A handle
// previously marked unhealthy is closed and replaced by a fresh connection
// attempt; the stale handle is never returned again.
func (m *Manager) Acquire(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil && !m.unhealthy {
		return m.db, nil
	}
	if m.db != nil {
		m.logger.Warn().Str("driver", m.config.DriverName).Msg("discarding unhealthy database handle")
		m.db.Close()
		m.db = nil
		m.unhealthy = false
	}

	db, err := sql.Open(m.config.DriverName, m.config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s handle: %w", m.config.DriverName, err)
	}
	db.SetMaxOpenConns(m.config.MaxConns)
	db.SetMaxIdleConns(m.config.MaxConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if m.config.OnOpen != nil {
		if err := m.config.OnOpen(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("session setup failed: %w", err)
		}
	}

	m.db = db
	m.logger.Debug().Str("driver", m.config.DriverName).Msg("database handle opened")
	return db, nil
}

// MarkUnhealthy flags the current handle as broken. The next Acquire
// discards it and attempts a fresh connection. No-op when nothing is open.
func (m *Manager) MarkUnhealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		m.unhealthy = true
	}
}

// Healthy reports whether a handle is open and not flagged as broken.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db != nil && !m.unhealthy
}

// Release closes the handle if one is open. Idempotent and safe to call from
// a shutdown path even if no connection was ever opened.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		m.db.Close()
		m.db = nil
		m.logger.Debug().Str("driver", m.config.DriverName).Msg("database handle released")
	}
	m.unhealthy = false
}
