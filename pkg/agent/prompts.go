package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillhq/quill/pkg/agent/tools"
)

// defaultSystemPrompt instructs the model in the structured output protocol
// the parser understands. Responses that follow neither shape are treated
// as plain prose and returned to the user verbatim.
const defaultSystemPrompt = `You are Quill, a coding assistant operating inside the user's terminal.

You respond with exactly one JSON object per turn, in one of two shapes.

To answer the user directly:
{"final_response": "your answer here"}

To invoke tools, list one or more calls:
{"tool_calls": [{"id": "call-1", "name": "tool_name", "input": {"arg": "value"}}]}

Rules:
- Every tool call needs a unique id, a registered tool name, and an input object matching the tool's schema.
- Tool results arrive as user messages beginning with TOOL_RESULT followed by the call id. A result with an "error:" line means the call failed; adjust and retry or explain the failure.
- Batch independent calls together; they run in the order listed.
- Prefer small, targeted tool calls over large speculative ones.
- When you have everything you need, emit final_response and stop calling tools.`

// ToolCatalog is optionally implemented by executors that can enumerate
// their tools so the system prompt can describe them to the model.
type ToolCatalog interface {
	List() []tools.Tool
}

// buildSystemPrompt renders the configured system prompt, followed by a
// description of every available tool when the executor exposes a catalog.
// Caller holds l.mu or is in single-threaded construction.
func (l *Loop) buildSystemPrompt() string {
	catalog, ok := l.executor.(ToolCatalog)
	if !ok {
		return l.systemPrompt
	}
	available := catalog.List()
	if len(available) == 0 {
		return l.systemPrompt
	}

	var builder strings.Builder
	builder.WriteString(l.systemPrompt)
	builder.WriteString("\n\nAvailable tools:\n")
	for _, tool := range available {
		fmt.Fprintf(&builder, "\n## %s\n%s\n", tool.Name(), tool.Description())
		if schema := tool.Schema(); schema != nil {
			if encoded, err := json.Marshal(schema); err == nil {
				fmt.Fprintf(&builder, "Input schema: %s\n", encoded)
			}
		}
	}
	return builder.String()
}
