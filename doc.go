// Package dbmcp provides safe, read-only database access for AI agents
// through the Model Context Protocol (MCP).
//
// It exposes three tools (execute_query, get_tables, and get_columns)
// backed by a strict read-only pipeline: statement validation, a managed
// database handle, row-capped result marshalling, and uniform catalog
// introspection across PostgreSQL, MySQL, and SQLite.
//
// Only data-retrieval statements ever reach the database. Candidate SQL is
// tokenized so that keywords inside string literals, quoted identifiers, and
// comments are ignored, then checked against a deny list of mutating and
// structural keywords. For PostgreSQL a second layer parses the statement
// with the real PostgreSQL grammar (pg_query) and rejects anything that is
// not a single retrieval statement. Session-level read-only settings are
// applied on every fresh connection as defense in depth.
//
// # Library Usage
//
//	gw, err := dbmcp.New(dbmcp.Config{
//		Connection: dbmcp.ConnectionConfig{
//			Driver: "sqlite",
//			Path:   "/data/app.db",
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gw.Close(context.Background())
//
//	// Use directly
//	out, err := gw.ExecuteQuery(ctx, dbmcp.QueryInput{SQL: "SELECT * FROM users", MaxRows: 50})
//
//	// Or register as MCP tools
//	dbmcp.RegisterMCPTools(mcpServer, gw)
//
// The database connection is opened lazily on first use and reused across
// calls. A handle that fails at the transport level is discarded and
// re-established transparently on the next call; failed statements are never
// retried automatically.
package dbmcp
