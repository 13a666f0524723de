// Package mcpserver exposes a ToolBox to MCP clients. A server can run a
// single session over stdio or any reader/writer pair, or serve many sessions
// over streamable HTTP through HTTPHandler.
package mcpserver
