package toolbox

import (
	"context"
	"encoding/json"
)

// NoParams is the input schema of a tool that takes no arguments.
var NoParams = json.RawMessage(`{"type":"object","properties":{}}`)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is an externally invocable capability. Description is shown to the
// orchestrator verbatim and decides whether it actually calls the tool, so it
// should read as an instruction rather than a suggestion.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}
