package dbmcp

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers ExecuteQuery, GetTables, and GetColumns
// as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, dbMcp *DBMcp) {
	// ExecuteQuery tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query against the database. Returns columns, rows, row_count, and has_more as JSON. Non-SELECT statements are rejected."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute (SELECT only)"),
		),
		mcp.WithNumber("max_rows",
			mcp.Description("Maximum number of rows to return (default 100, capped at 1000)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(executeQueryTool, dbMcp.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return toolError(validationError("query parameter is required")), nil
		}
		maxRows := req.GetInt("max_rows", 0)

		output, err := dbMcp.ExecuteQuery(ctx, QueryInput{SQL: query, MaxRows: maxRows})
		if err != nil {
			return toolError(err), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal query result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// GetTables tool
	getTablesTool := mcp.NewTool("get_tables",
		mcp.WithDescription("List the tables and views in a schema. Defaults to the session's current schema."),
		mcp.WithString("schema",
			mcp.Description("The schema to list (defaults to the current schema)"),
		),
		mcp.WithBoolean("include_system",
			mcp.Description("Include system catalog tables (default false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(getTablesTool, dbMcp.loggedToolHandler("get_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := GetTablesInput{
			Schema:        req.GetString("schema", ""),
			IncludeSystem: req.GetBool("include_system", false),
		}
		output, err := dbMcp.GetTables(ctx, input)
		if err != nil {
			return toolError(err), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal get tables result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))

	// GetColumns tool
	getColumnsTool := mcp.NewTool("get_columns",
		mcp.WithDescription("Describe a table: columns with types, primary key columns, and outgoing foreign keys."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("The table name to describe"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema name (defaults to the current schema)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(getColumnsTool, dbMcp.loggedToolHandler("get_columns", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return toolError(validationError("table_name parameter is required")), nil
		}
		schema := req.GetString("schema", "")

		output, err := dbMcp.GetColumns(ctx, GetColumnsInput{Table: table, Schema: schema})
		if err != nil {
			return toolError(err), nil
		}
		jsonBytes, err := json.Marshal(output)
		if err != nil {
			return mcp.NewToolResultError("failed to marshal get columns result"), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}))
}

// toolError serializes a gateway error as a structured MCP error payload so
// clients can react to the kind without parsing prose.
func toolError(err error) *mcp.CallToolResult {
	payload := struct {
		Error struct {
			Kind    Kind   `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	payload.Error.Kind = KindOf(err)
	payload.Error.Message = err.Error()

	jsonBytes, merr := json.Marshal(payload)
	if merr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(jsonBytes))
}

// loggedToolHandler wraps a tool handler to log request and response lengths
// under a per-call request id.
func (d *DBMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		d.logger.Info().
			Str("tool", tool).
			Str("request_id", requestID).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
