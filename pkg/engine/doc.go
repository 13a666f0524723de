// Package engine is the composition root of the eyes daemon. It builds the
// display transport, the animation scheduler, the metrics collector and the
// control surfaces (HTTP API, MCP over streamable HTTP and stdio) from a
// Config, and supervises them in Run. Frontends such as cmd/eyes only talk
// to Engine and never wire lower-level packages themselves.
package engine
