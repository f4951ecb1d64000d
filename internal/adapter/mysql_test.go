package adapter

import (
	"strings"
	"testing"
)

func TestMySQLDSN(t *testing.T) {
	t.Parallel()
	a := &MySQL{}

	dsn, err := a.DSN(Target{Host: "db.internal", Database: "app", User: "reader", Password: "s3cret"})
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}
	if dsn != "reader:s3cret@tcp(db.internal:3306)/app?parseTime=true&transaction_read_only=1" {
		t.Fatalf("unexpected DSN: %s", dsn)
	}

	dsn, err = a.DSN(Target{Host: "db.internal", Port: 3307, Database: "app", User: "reader", Options: "tls=true"})
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}
	if !strings.Contains(dsn, ":3307)") || !strings.HasSuffix(dsn, "&tls=true") {
		t.Fatalf("unexpected DSN with options: %s", dsn)
	}
	// Every physical connection must start read-only, so the setting lives in
	// the DSN rather than in a once-per-handle session statement.
	if !strings.Contains(dsn, "transaction_read_only=1") {
		t.Fatalf("expected read-only system variable in DSN: %s", dsn)
	}
}

func TestMySQLDSN_MissingFields(t *testing.T) {
	t.Parallel()
	a := &MySQL{}

	_, err := a.DSN(Target{Host: "db.internal"})
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
	if !strings.Contains(err.Error(), "database") || !strings.Contains(err.Error(), "user") {
		t.Fatalf("expected error to name the missing fields, got: %v", err)
	}
}

func TestMySQLValidateStatement(t *testing.T) {
	t.Parallel()
	a := &MySQL{}

	allowed := []string{
		"SELECT * FROM orders",
		"SELECT download_count FROM stats", // not LOAD
		"SELECT sleepiness FROM surveys",   // not SLEEP(
	}
	for _, sqlText := range allowed {
		if err := a.ValidateStatement(sqlText); err != nil {
			t.Fatalf("expected %q to pass, got: %v", sqlText, err)
		}
	}

	blocked := []string{
		"SELECT * FROM users INTO OUTFILE '/tmp/dump'",
		"SELECT * INTO DUMPFILE '/tmp/dump' FROM users",
		"SELECT name INTO @stolen FROM users",
		"SELECT LOAD_FILE('/etc/passwd')",
		"SELECT SLEEP(10)",
		"SELECT BENCHMARK(1000000, MD5('x'))",
		"SELECT GET_LOCK('x', 10)",
		"LOAD DATA INFILE '/tmp/x' INTO TABLE t",
		"HANDLER users OPEN",
		"RENAME TABLE a TO b",
	}
	for _, sqlText := range blocked {
		if err := a.ValidateStatement(sqlText); err == nil {
			t.Fatalf("expected %q to be blocked", sqlText)
		}
	}
}
