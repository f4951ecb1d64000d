package dbmcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/klauseduard/jdbc-mcp/internal/adapter"
	"github.com/klauseduard/jdbc-mcp/internal/conn"
	"github.com/klauseduard/jdbc-mcp/internal/readonly"
)

// DBMcp is the core engine that provides the ExecuteQuery, GetTables, and
// GetColumns tools over a single managed database connection.
// All exported methods are safe for concurrent use from multiple goroutines.
type DBMcp struct {
	config    Config
	adapter   adapter.Adapter
	conns     *conn.Manager
	semaphore chan struct{}
	checker   *readonly.Checker
	logger    zerolog.Logger
}

// New creates a new DBMcp instance for the engine named by
// config.Connection.Driver. The underlying database connection is opened
// lazily on first use, so New succeeds even when the database is unreachable.
// Panics on invalid config. Returns error only for runtime failures.
func New(config Config, logger zerolog.Logger) (*DBMcp, error) {
	// --- Config validation (panics on invalid config) ---

	if config.Connection.Driver == "" {
		panic("dbmcp: connection.driver must be non-empty")
	}
	if config.Connection.MaxConns < 0 {
		panic("dbmcp: connection.max_conns must be >= 0")
	}
	if config.Query.DefaultTimeoutSeconds < 0 {
		panic("dbmcp: query.default_timeout_seconds must be >= 0")
	}
	if config.Query.GetTablesTimeoutSeconds < 0 {
		panic("dbmcp: query.get_tables_timeout_seconds must be >= 0")
	}
	if config.Query.GetColumnsTimeoutSeconds < 0 {
		panic("dbmcp: query.get_columns_timeout_seconds must be >= 0")
	}
	if config.Query.MaxSQLLength < 0 {
		panic("dbmcp: query.max_sql_length must be >= 0")
	}

	// Apply defaults for zero values
	if config.Connection.MaxConns == 0 {
		config.Connection.MaxConns = 1
	}
	if config.Query.DefaultTimeoutSeconds == 0 {
		config.Query.DefaultTimeoutSeconds = 30
	}
	if config.Query.GetTablesTimeoutSeconds == 0 {
		config.Query.GetTablesTimeoutSeconds = 10
	}
	if config.Query.GetColumnsTimeoutSeconds == 0 {
		config.Query.GetColumnsTimeoutSeconds = 10
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}

	// --- Resolve engine adapter ---

	a, err := adapter.ForDriver(config.Connection.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := a.DSN(adapter.Target{
		Host:     config.Connection.Host,
		Port:     config.Connection.Port,
		Database: config.Connection.Database,
		User:     config.Connection.User,
		Password: config.Connection.Password,
		Path:     config.Connection.Path,
		Options:  config.Connection.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	// --- Initialize internal components ---

	checker := readonly.NewChecker(readonly.Policy{
		AllowCTE:     config.Policy.AllowCTE,
		AllowExplain: config.Policy.AllowExplain,
		AllowShow:    config.Policy.AllowShow,
		AllowCall:    config.Policy.AllowCall,
	})

	manager := conn.NewManager(conn.Config{
		DriverName: a.DriverName(),
		DSN:        dsn,
		MaxConns:   config.Connection.MaxConns,
		OnOpen:     a.SessionSetup,
	}, logger)

	return &DBMcp{
		config:    config,
		adapter:   a,
		conns:     manager,
		semaphore: make(chan struct{}, config.Connection.MaxConns),
		checker:   checker,
		logger:    logger,
	}, nil
}

// Ping forces the lazy connection open and verifies database reachability.
func (d *DBMcp) Ping(ctx context.Context) error {
	db, err := d.conns.Acquire(ctx)
	if err != nil {
		return connectionError(err, "failed to connect to database")
	}
	return db.PingContext(ctx)
}

// Close releases the underlying connection. Accepts context for API
// forward-compatibility, but database/sql close does not support
// context-based shutdown.
func (d *DBMcp) Close(ctx context.Context) {
	d.conns.Release()
}

// SupportedDrivers returns the engine names accepted in connection.driver.
func SupportedDrivers() []string {
	return adapter.Drivers()
}

func (d *DBMcp) queryTimeout() time.Duration {
	return time.Duration(d.config.Query.DefaultTimeoutSeconds) * time.Second
}

func (d *DBMcp) getTablesTimeout() time.Duration {
	return time.Duration(d.config.Query.GetTablesTimeoutSeconds) * time.Second
}

func (d *DBMcp) getColumnsTimeout() time.Duration {
	return time.Duration(d.config.Query.GetColumnsTimeoutSeconds) * time.Second
}
