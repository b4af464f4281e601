package pgschema

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool modes.
const (
	ModeAll      = "all"
	ModeSpecific = "specific"
)

// Argument names shared by the tool, the prompt and completion.
const (
	ArgMode      = "mode"
	ArgTableName = "tableName"
)

// schemaToolInputSchema requires mode and, when mode is "specific", a
// non-empty tableName.
func schemaToolInputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			ArgMode: {
				Type:        "string",
				Enum:        []any{ModeAll, ModeSpecific},
				Description: "Mode of schema retrieval: 'all' for every table, 'specific' for one table",
			},
			ArgTableName: {
				Type:        "string",
				Description: "Name of the table to describe (required when mode is 'specific')",
			},
		},
		Required: []string{ArgMode},
		If: &jsonschema.Schema{
			Properties: map[string]*jsonschema.Schema{
				ArgMode: {Enum: []any{ModeSpecific}},
			},
		},
		Then: &jsonschema.Schema{
			Required: []string{ArgTableName},
		},
	}
}

// marshalInputSchema renders s as raw JSON for the tool descriptor.
func marshalInputSchema(s *jsonschema.Schema) (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input schema: %w", err)
	}
	return b, nil
}
