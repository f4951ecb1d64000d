package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	dbmcp "github.com/klauseduard/jdbc-mcp"
	"github.com/klauseduard/jdbc-mcp/internal/meta"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", ".jdbcmcp/config.json", "Path to configuration file")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "jdbcmcp %s\n\n", meta.Version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'jdbcmcp doctor' again.")
		return nil
	}

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*dbmcp.ServerConfig, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid JSON
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	var config dbmcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid JSON: %v", err))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, "Config file is valid JSON")

	// Check 2: connection.driver names a supported engine
	driverOK := false
	for _, name := range dbmcp.SupportedDrivers() {
		if strings.EqualFold(config.Connection.Driver, name) {
			driverOK = true
		}
	}
	switch strings.ToLower(config.Connection.Driver) {
	case "postgresql", "pgx", "sqlite3":
		driverOK = true
	}
	if !driverOK {
		printCheck(w, useColor, false, fmt.Sprintf("connection.driver is supported (got %q, want one of: %s)",
			config.Connection.Driver, strings.Join(dbmcp.SupportedDrivers(), ", ")))
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.driver is supported (%s)", config.Connection.Driver))
	}

	// Check 3: connection target fields per engine
	if strings.HasPrefix(strings.ToLower(config.Connection.Driver), "sqlite") {
		if config.Connection.Path == "" {
			printCheck(w, useColor, false, "connection.path is set (required for sqlite)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("connection.path is set (%s)", config.Connection.Path))
		}
	} else if driverOK {
		if config.Connection.Host == "" {
			printCheck(w, useColor, false, "connection.host is set")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("connection.host is set (%s)", config.Connection.Host))
		}
		if config.Connection.Database == "" {
			printCheck(w, useColor, false, "connection.database is set")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("connection.database is set (%s)", config.Connection.Database))
		}
		if config.Connection.User == "" {
			printCheck(w, useColor, false, "connection.user is set")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("connection.user is set (%s)", config.Connection.User))
		}
	}

	// Check 4: server.port > 0 when transport is http
	if config.Server.Transport == "http" {
		if config.Server.Port <= 0 {
			printCheck(w, useColor, false, "server.port is > 0 (required when transport is http)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("server.port is > 0 (%d)", config.Server.Port))
		}
	}

	// Check 5: Health check path set when enabled
	if config.Server.HealthCheckEnabled {
		if config.Server.HealthCheckPath == "" {
			printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("health_check_path is set (%s)", config.Server.HealthCheckPath))
		}
	}

	return &config, allPassed
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *dbmcp.ServerConfig) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	if config.Server.Transport == "http" {
		url := fmt.Sprintf("http://localhost:%d/mcp", config.Server.Port)

		subheading("Claude Code")
		fmt.Fprintf(w, "  Run this command to add the server:\n\n")
		fmt.Fprintf(w, "    claude mcp add --transport http db %s\n\n", url)
		fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
		fmt.Fprintf(w, `  {
    "mcpServers": {
      "db": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
		fmt.Fprintln(w)

		subheading("Cursor (.cursor/mcp.json)")
		fmt.Fprintf(w, `  {
    "mcpServers": {
      "db": {
        "url": "%s"
      }
    }
  }
`, url)
		return
	}

	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add db -- jdbcmcp serve\n\n")
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "db": {
        "command": "jdbcmcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "db": {
        "command": "jdbcmcp",
        "args": ["serve"]
      }
    }
  }
`)
}
