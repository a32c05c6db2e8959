package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quillhq/quill/pkg/llm/parser"
)

// Registry routes parsed tool calls to registered tools by name. It is the
// concrete executor behind the agent loop's dispatch boundary.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a second tool under an
// existing name is an error.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q is already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Sensitive reports whether the named tool requires approval before
// dispatch. Unknown names are not sensitive; they fail lookup in Execute
// instead.
func (r *Registry) Sensitive(name string) bool {
	tool, exists := r.Get(name)
	return exists && tool.Sensitive()
}

// Execute dispatches a parsed tool call to the named tool. Unknown tools
// and tool failures return errors the loop treats as recoverable.
func (r *Registry) Execute(ctx context.Context, call parser.ToolCall) (string, error) {
	tool, exists := r.Get(call.Name)
	if !exists {
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}

	result, err := tool.Execute(ctx, call.Input)
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", call.Name, err)
	}
	return result, nil
}
