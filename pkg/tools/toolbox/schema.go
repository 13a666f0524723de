package toolbox

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the JSON schema of the struct v points to, for use as a
// tool's InputSchema. Fields without omitempty are required; jsonschema
// struct tags add descriptions and enums.
func SchemaFor(v any) json.RawMessage {
	r := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := r.Reflect(v)
	// MCP clients reject unknown dialects; the object schema is enough.
	schema.Version = ""

	b, err := json.Marshal(schema)
	if err != nil {
		panic("toolbox: marshal schema: " + err.Error())
	}

	return b
}
