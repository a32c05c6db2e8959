// Package coding provides the built-in tool catalog for working on a
// codebase: reading, writing, and editing files, listing and searching the
// workspace, and running shell commands. Every tool resolves paths through
// a workspace.Guard so the model cannot reach outside the workspace.
package coding

import (
	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

// RegisterAll registers the full coding tool catalog on the registry.
func RegisterAll(registry *tools.Registry, guard *workspace.Guard) error {
	all := []tools.Tool{
		NewReadFileTool(guard),
		NewWriteFileTool(guard),
		NewEditFileTool(guard),
		NewListFilesTool(guard),
		NewSearchFilesTool(guard),
		NewExecuteCommandTool(guard),
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
