// Package tools exposes the eye's capabilities to external orchestrators.
//
// It is organized into sub-packages:
//   - [github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/toolbox]: Tool type and ToolBox registry for registering, listing and calling tools
//   - [github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/eyetools]: the eye.open, eye.close, eye.state and eye.subtitle tools
//   - [github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/mcpserver]: MCP server exposing a ToolBox over stdio or streamable HTTP
//   - [github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/mcpclient]: MCP client used by the command line to invoke tools on a running daemon
//
// The toolbox sub-package is the foundation layer. The mcpclient and
// mcpserver packages are thin wrappers around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk) and are independent of each other.
package tools
