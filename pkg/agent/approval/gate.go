// Package approval gates dispatch of sensitive tool calls (file writes,
// shell execution) on user consent. The agent loop consults the gate
// before executing any call its executor flags as sensitive; auto-approval
// configuration can grant standing consent per tool.
package approval

import (
	"context"

	"github.com/google/uuid"

	"github.com/quillhq/quill/pkg/llm/parser"
	"github.com/quillhq/quill/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("approval")
	if err != nil {
		debugLog.Warnf("Failed to initialize approval logger, using stderr fallback: %v", err)
	}
}

// Gate decides whether a sensitive tool call may be dispatched. The loop
// blocks on the gate's answer; a false result skips execution of that call
// without aborting the run.
type Gate interface {
	Approve(ctx context.Context, call parser.ToolCall) (bool, error)
}

// Request carries one approval prompt to the user-facing shell.
type Request struct {
	// ID uniquely identifies this approval request.
	ID string

	// Call is the tool call awaiting consent.
	Call parser.ToolCall
}

// PromptFunc asks the user for consent interactively. It must honor ctx
// cancellation.
type PromptFunc func(ctx context.Context, req Request) (bool, error)

// AutoGate approves calls for tools with standing auto-approval and defers
// the rest to an interactive prompt. Without a prompt, calls lacking
// auto-approval are rejected.
type AutoGate struct {
	autoApproved map[string]bool
	prompt       PromptFunc
}

// NewAutoGate creates a gate with the given per-tool auto-approval map and
// interactive fallback. Both may be nil.
func NewAutoGate(autoApproved map[string]bool, prompt PromptFunc) *AutoGate {
	return &AutoGate{
		autoApproved: autoApproved,
		prompt:       prompt,
	}
}

// Approve implements Gate.
func (g *AutoGate) Approve(ctx context.Context, call parser.ToolCall) (bool, error) {
	if g.autoApproved[call.Name] {
		debugLog.Debugf("auto-approved tool call %s (%s)", call.Name, call.ID)
		return true, nil
	}

	if g.prompt == nil {
		debugLog.Warnf("no prompt configured, rejecting sensitive tool call %s", call.Name)
		return false, nil
	}

	return g.prompt(ctx, Request{ID: uuid.New().String(), Call: call})
}
