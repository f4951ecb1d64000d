package dbmcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Connection ConnectionConfig `json:"connection"`
	Query      QueryConfig      `json:"query"`
	Policy     PolicyConfig     `json:"policy"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config  `json:",inline"`
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// ConnectionConfig holds everything needed to open the database handle.
// Supplied once at construction and treated as opaque afterwards.
type ConnectionConfig struct {
	Driver   string `json:"driver"` // "postgres", "mysql", "sqlite"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	Path     string `json:"path"`    // sqlite database file
	Options  string `json:"options"` // extra driver DSN options
	MaxConns int    `json:"max_conns"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds    int `json:"default_timeout_seconds"`
	GetTablesTimeoutSeconds  int `json:"get_tables_timeout_seconds"`
	GetColumnsTimeoutSeconds int `json:"get_columns_timeout_seconds"`
	MaxSQLLength             int `json:"max_sql_length"`
}

// PolicyConfig controls which read-only statement forms are accepted beyond
// plain SELECT. All fields default to false (blocked).
type PolicyConfig struct {
	AllowCTE     bool `json:"allow_cte"`     // WITH ... SELECT
	AllowExplain bool `json:"allow_explain"` // EXPLAIN <retrieval>
	AllowShow    bool `json:"allow_show"`    // SHOW / DESCRIBE / DESC
	AllowCall    bool `json:"allow_call"`    // set-returning CALL
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	Transport          string `json:"transport"` // "stdio" (default) or "http"
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stderr (default), stdout, or file path
}
