package coding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/quillhq/quill/pkg/agent/tools"
	"github.com/quillhq/quill/pkg/security/workspace"
)

const (
	// defaultCommandTimeout bounds command runtime when none is given.
	defaultCommandTimeout = 30 * time.Second

	// maxCommandOutput truncates captured stdout/stderr.
	maxCommandOutput = 16 * 1024
)

// ExecuteCommandTool executes shell commands in the workspace directory.
type ExecuteCommandTool struct {
	guard          *workspace.Guard
	defaultTimeout time.Duration
}

// NewExecuteCommandTool creates a new command execution tool.
func NewExecuteCommandTool(guard *workspace.Guard) *ExecuteCommandTool {
	return &ExecuteCommandTool{
		guard:          guard,
		defaultTimeout: defaultCommandTimeout,
	}
}

// Name returns the tool name.
func (t *ExecuteCommandTool) Name() string {
	return "execute_command"
}

// Description returns the tool description.
func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command in the workspace directory. The command runs with a timeout and returns stdout, stderr, and exit code."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ExecuteCommandTool) Schema() map[string]interface{} {
	return tools.BaseSchema(
		map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"timeout": map[string]interface{}{
				"type":        "integer",
				"description": "Command timeout in seconds (default: 30)",
			},
			"working_dir": map[string]interface{}{
				"type":        "string",
				"description": "Working directory relative to workspace (default: workspace root)",
			},
		},
		[]string{"command"},
	)
}

// Sensitive reports that shell execution requires approval.
func (t *ExecuteCommandTool) Sensitive() bool {
	return true
}

// Execute runs the command and reports exit code, stdout, and stderr.
func (t *ExecuteCommandTool) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	command, ok := tools.StringArg(input, "command")
	if !ok || command == "" {
		return "", fmt.Errorf("missing required parameter: command")
	}

	timeout := t.defaultTimeout
	if seconds, ok := tools.IntArg(input, "timeout"); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	workDir := t.guard.Root()
	if dir, ok := tools.StringArg(input, "working_dir"); ok && dir != "" {
		if err := t.guard.Validate(dir); err != nil {
			return "", fmt.Errorf("invalid working directory: %w", err)
		}
		resolved, err := t.guard.Resolve(dir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workDir = resolved
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("command timed out after %s", timeout)
		case errors.As(runErr, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return "", fmt.Errorf("failed to run command: %w", runErr)
		}
	}

	return formatCommandResult(exitCode, elapsed, stdout.String(), stderr.String()), nil
}

func formatCommandResult(exitCode int, elapsed time.Duration, stdout, stderr string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "exit code: %d (in %s)", exitCode, elapsed.Round(time.Millisecond))

	if stdout != "" {
		builder.WriteString("\nstdout:\n")
		builder.WriteString(truncateOutput(stdout))
	}
	if stderr != "" {
		builder.WriteString("\nstderr:\n")
		builder.WriteString(truncateOutput(stderr))
	}
	if stdout == "" && stderr == "" {
		builder.WriteString("\n(no output)")
	}
	return builder.String()
}

func truncateOutput(output string) string {
	if len(output) <= maxCommandOutput {
		return output
	}
	return output[:maxCommandOutput] + fmt.Sprintf("\n... output truncated at %d bytes", maxCommandOutput)
}
