package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	dbmcp "github.com/klauseduard/jdbc-mcp"
)

// validServerConfig returns a minimal valid ServerConfig for testing.
func validServerConfig() dbmcp.ServerConfig {
	return dbmcp.ServerConfig{
		Config: dbmcp.Config{
			Connection: dbmcp.ConnectionConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				User:     "reader",
			},
			Query: dbmcp.QueryConfig{
				DefaultTimeoutSeconds: 30,
			},
		},
		Server: dbmcp.ServerSettings{
			Transport: "http",
			Port:      8080,
		},
	}
}

func writeConfigFile(t *testing.T, dir string, config dbmcp.ServerConfig) string {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// Note: Tests using t.Setenv() cannot use t.Parallel() in Go.

func TestLoadConfigValid(t *testing.T) {
	dir := t.TempDir()
	cfg := validServerConfig()
	path := writeConfigFile(t, dir, cfg)

	t.Setenv("JDBCMCP_CONFIG_PATH", path)

	loaded, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Connection.Driver != "postgres" {
		t.Fatalf("expected driver 'postgres', got %q", loaded.Connection.Driver)
	}
	if loaded.Connection.Host != "localhost" {
		t.Fatalf("expected host 'localhost', got %q", loaded.Connection.Host)
	}
	if loaded.Connection.Port != 5432 {
		t.Fatalf("expected connection port 5432, got %d", loaded.Connection.Port)
	}
	if loaded.Connection.Database != "testdb" {
		t.Fatalf("expected database 'testdb', got %q", loaded.Connection.Database)
	}
	if loaded.Query.DefaultTimeoutSeconds != 30 {
		t.Fatalf("expected default_timeout_seconds 30, got %d", loaded.Query.DefaultTimeoutSeconds)
	}
	if loaded.Server.Transport != "http" {
		t.Fatalf("expected transport 'http', got %q", loaded.Server.Transport)
	}
	if loaded.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", loaded.Server.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("JDBCMCP_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.json"))

	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("JDBCMCP_CONFIG_PATH", path)

	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNeedsPassword(t *testing.T) {
	t.Parallel()
	if needsPassword("sqlite") || needsPassword("sqlite3") {
		t.Fatal("sqlite must not prompt for a password")
	}
	if !needsPassword("postgres") || !needsPassword("mysql") {
		t.Fatal("network engines must prompt for a password")
	}
}

func TestSetupLogger_Levels(t *testing.T) {
	t.Parallel()
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
	}
	for level, want := range cases {
		logger := setupLogger(dbmcp.LoggingConfig{Level: level})
		if logger.GetLevel() != want {
			t.Fatalf("level %q: expected %v, got %v", level, want, logger.GetLevel())
		}
	}
}

func TestDoctor_MissingConfig(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := doctor(&buf, false, filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "✗ Config file readable") {
		t.Fatalf("expected failed readable check, got:\n%s", output)
	}
	if !strings.Contains(output, "Fix the issues above") {
		t.Fatalf("expected fix hint, got:\n%s", output)
	}
}

func TestDoctor_ValidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig())

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	output := buf.String()
	for _, check := range []string{
		"✓ Config file readable",
		"✓ Config file is valid JSON",
		"✓ connection.driver is supported (postgres)",
		"✓ connection.host is set (localhost)",
		"✓ server.port is > 0 (8080)",
		"Agent Connection Snippets",
		"http://localhost:8080/mcp",
	} {
		if !strings.Contains(output, check) {
			t.Fatalf("expected %q in doctor output, got:\n%s", check, output)
		}
	}
}

func TestDoctor_UnsupportedDriver(t *testing.T) {
	t.Parallel()
	cfg := validServerConfig()
	cfg.Connection.Driver = "oracle"
	path := writeConfigFile(t, t.TempDir(), cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ connection.driver is supported") {
		t.Fatalf("expected failed driver check, got:\n%s", buf.String())
	}
}
