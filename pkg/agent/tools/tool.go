// Package tools defines the capability contract between the agent loop and
// the concrete tools it can dispatch to, plus the registry that routes
// parsed tool calls by name.
package tools

import (
	"context"
)

// Tool represents a capability the model can invoke during a conversation.
// Arguments arrive as the decoded JSON input object of a tool call.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "read_file").
	Name() string

	// Description returns a human-readable description of what this tool
	// does, rendered into the system prompt.
	Description() string

	// Schema returns the JSON schema for this tool's input parameters.
	Schema() map[string]interface{}

	// Execute runs the tool with the given input and returns a result
	// string. Errors are recoverable: the loop reports them back into the
	// conversation rather than aborting.
	Execute(ctx context.Context, input map[string]interface{}) (string, error)

	// Sensitive reports whether this tool performs effects that require
	// approval before dispatch (file writes, shell execution).
	Sensitive() bool
}

// BaseSchema creates a common JSON schema structure for a tool with the
// given properties and required fields.
func BaseSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringArg extracts a string argument from a tool input object. The second
// return is false when the key is absent or not a string.
func StringArg(input map[string]interface{}, key string) (string, bool) {
	value, ok := input[key].(string)
	return value, ok
}

// IntArg extracts an integer argument. JSON numbers decode as float64, so
// both forms are accepted.
func IntArg(input map[string]interface{}, key string) (int, bool) {
	switch value := input[key].(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	default:
		return 0, false
	}
}

// BoolArg extracts a boolean argument.
func BoolArg(input map[string]interface{}, key string) (bool, bool) {
	value, ok := input[key].(bool)
	return value, ok
}
