// Package meta holds build metadata shared between the CLI and the server.
package meta

// Version is the release version reported by the CLI and the MCP server.
const Version = "1.0.0"
