package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/term"

	dbmcp "github.com/klauseduard/jdbc-mcp"
	"github.com/klauseduard/jdbc-mcp/internal/meta"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Transport == "http" && serverConfig.Server.Port <= 0 {
		panic("jdbcmcp: server.port must be > 0 when transport is http")
	}

	// 2. Setup logger. Logs go to stderr by default; stdout belongs to the
	// MCP protocol when serving over stdio.
	logger := setupLogger(serverConfig.Logging)

	// 3. Resolve the database password: config, then env, then prompt.
	if serverConfig.Connection.Password == "" {
		serverConfig.Connection.Password = os.Getenv("JDBCMCP_DB_PASSWORD")
	}
	if serverConfig.Connection.Password == "" && needsPassword(serverConfig.Connection.Driver) && isTTY(os.Stdin.Fd()) {
		serverConfig.Connection.Password = promptPassword("Password: ")
	}

	// 4. Create DBMcp instance
	dbMcp, err := dbmcp.New(serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create DBMcp: %w", err)
	}
	defer dbMcp.Close(ctx)

	// 5. Test database connection
	logger.Info().Msg("testing database connection")
	if err := dbMcp.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		clientName := req.Params.ClientInfo.Name
		clientVersion := req.Params.ClientInfo.Version
		logger.Info().
			Str("client_name", clientName).
			Str("client_version", clientVersion).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("jdbcmcp", meta.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	dbmcp.RegisterMCPTools(mcpServer, dbMcp)

	// 7. Serve over the configured transport
	if serverConfig.Server.Transport == "http" {
		return serveHTTP(mcpServer, serverConfig, logger)
	}
	logger.Info().Msg("starting jdbcmcp server on stdio")
	return server.ServeStdio(mcpServer)
}

func serveHTTP(mcpServer *server.MCPServer, serverConfig *dbmcp.ServerConfig, logger zerolog.Logger) error {
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("jdbcmcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler: Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting jdbcmcp server")
	return streamableServer.Start(addr)
}

// needsPassword reports whether the driver authenticates with credentials.
// SQLite opens a local file and never prompts.
func needsPassword(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return false
	default:
		return true
	}
}

func loadServerConfig() (*dbmcp.ServerConfig, error) {
	configPath := os.Getenv("JDBCMCP_CONFIG_PATH")
	if configPath == "" {
		configPath = ".jdbcmcp/config.json"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("JDBCMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config dbmcp.ServerConfig
	if err := v.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.Squash = true
	}); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

func setupLogger(config dbmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
