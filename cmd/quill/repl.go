package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/quillhq/quill/pkg/agent"
	"github.com/quillhq/quill/pkg/agent/approval"
	"github.com/quillhq/quill/pkg/agent/quota"
)

// shell is the line-oriented REPL around one agent loop.
type shell struct {
	in  *bufio.Scanner
	out io.Writer
}

func newShell(in io.Reader, out io.Writer) *shell {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &shell{in: scanner, out: out}
}

func (s *shell) printChunk(chunk string) {
	fmt.Fprint(s.out, chunk)
}

// promptApproval asks the user to confirm a sensitive tool call.
func (s *shell) promptApproval(ctx context.Context, req approval.Request) (bool, error) {
	fmt.Fprintf(s.out, "\nApprove %s call %s? Input: %v [y/N] ", req.Call.Name, req.Call.ID, req.Call.Input)
	if !s.in.Scan() {
		return false, s.in.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(s.in.Text()))
	return answer == "y" || answer == "yes", nil
}

// repl reads prompts until EOF or /quit. SIGINT cancels the in-flight run
// instead of killing the process.
func (s *shell) repl(loop *agent.Loop) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			loop.Cancel()
			fmt.Fprintln(s.out, "\n(cancelling)")
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(loop, line); quit {
				return nil
			}
			continue
		}

		answer, err := loop.Run(context.Background(), line)
		switch {
		case errors.Is(err, agent.ErrCancelled):
			fmt.Fprintln(s.out, "(run cancelled)")
		case errors.Is(err, agent.ErrIterationLimit):
			fmt.Fprintln(s.out, "(stopped: iteration limit reached)")
		case err != nil:
			fmt.Fprintf(s.out, "error: %v\n", err)
		default:
			fmt.Fprintf(s.out, "\n%s\n", answer)
		}
	}
}

// handleCommand runs one slash command; returns true to exit the REPL.
func (s *shell) handleCommand(loop *agent.Loop, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(s.out, `commands:
  /compact   collapse history, keeping configuration context
  /reset     discard the conversation entirely
  /usage     show quota and context window usage
  /context   dump the structured context view
  /model N   switch to model N on the current provider
  /quit      exit`)

	case "/reset":
		loop.Reset()
		fmt.Fprintln(s.out, "conversation reset")

	case "/compact":
		loop.CompactHistory("")
		fmt.Fprintln(s.out, "history compacted")

	case "/usage":
		s.printUsage(loop)

	case "/context":
		fmt.Fprintln(s.out, loop.ContextManager().BuildStructuredView())

	case "/model":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: /model <name>")
			break
		}
		s.switchModel(loop, fields[1])

	default:
		fmt.Fprintf(s.out, "unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func (s *shell) printUsage(loop *agent.Loop) {
	manager := loop.ContextManager()
	stats := manager.GetStats()
	fmt.Fprintf(s.out, "context: %d / %d tokens (working budget %d)\n",
		stats.Usage, manager.MaxContextTokens(), stats.WorkingBudget)
	for itemType, count := range stats.ItemCount {
		fmt.Fprintf(s.out, "  %-12s %3d items, %d tokens\n", itemType, count, stats.Tokens[itemType])
	}
	if last := loop.LastUsage(); last.TotalTokens > 0 {
		fmt.Fprintf(s.out, "last request: %d prompt + %d completion = %d tokens\n",
			last.PromptTokens, last.CompletionTokens, last.TotalTokens)
	}

	tracker := loop.QuotaTracker()
	if tracker == nil {
		return
	}
	usage := tracker.Usage()
	for _, h := range []quota.Horizon{quota.HorizonMinute, quota.HorizonHour, quota.HorizonDay} {
		fmt.Fprintf(s.out, "quota %-6s %d requests, %d tokens\n", h, usage.Requests[h], usage.Tokens[h])
	}
}

func (s *shell) switchModel(loop *agent.Loop, model string) {
	if err := loop.SwitchModel(model); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "switched to model %s\n", model)
}
