package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillhq/quill/pkg/agent/contextwindow"
	"github.com/quillhq/quill/pkg/llm"
	"github.com/quillhq/quill/pkg/llm/parser"
	"github.com/quillhq/quill/pkg/types"
)

// Run drives the conversation for one user prompt: model call, parse, tool
// dispatch, continue, until the model emits a final answer or a terminal
// condition trips. It returns the final answer text.
//
// Terminal failures: ErrIterationLimit, ErrCancelled, *QuotaError,
// *ProviderError, ErrBusy. Parse failures and tool failures are absorbed
// into the conversation and never abort the run.
func (l *Loop) Run(ctx context.Context, userPrompt string) (string, error) {
	if !l.running.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer l.running.Store(false)

	// A cancellation from a previous run does not poison this one.
	l.cancelled.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.cancelMu.Lock()
	l.cancelRun = cancel
	l.cancelMu.Unlock()
	defer func() {
		l.cancelMu.Lock()
		l.cancelRun = nil
		l.cancelMu.Unlock()
	}()

	l.appendUserPrompt(userPrompt)

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		if l.isCancelled(runCtx) {
			return "", ErrCancelled
		}

		if err := l.checkQuota(); err != nil {
			return "", err
		}

		response, err := l.callModel(runCtx)
		if err != nil {
			return "", err
		}

		outcome := parser.Parse(response)
		switch outcome.Kind {
		case parser.KindFinal:
			l.recordAssistantTurn(outcome.Message)
			return strings.TrimSpace(outcome.Message), nil

		case parser.KindUnparsed:
			// Not an error: raw text stands as the final answer.
			l.recordAssistantTurn(outcome.Raw)
			return strings.TrimSpace(outcome.Raw), nil

		case parser.KindToolBatch:
			// The raw response carries the call syntax verbatim; the
			// model needs it in history to reference its own calls.
			l.recordAssistantTurn(response)
			if err := l.dispatchBatch(runCtx, outcome.Calls); err != nil {
				return "", err
			}
		}
	}

	return "", ErrIterationLimit
}

// isCancelled reports whether cooperative cancellation was requested,
// either through Cancel or through the caller's context.
func (l *Loop) isCancelled(ctx context.Context) bool {
	return l.cancelled.Load() || ctx.Err() != nil
}

// Input at or beyond these bounds is treated as pasted material rather
// than conversation, retained at a lower priority than history.
const (
	pasteSizeThreshold = 2048
	pasteLineThreshold = 5
)

// appendUserPrompt seeds the system message on first use and appends the
// user's prompt to history and the context window manager.
func (l *Loop) appendUserPrompt(userPrompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) == 0 {
		systemPrompt := l.buildSystemPrompt()
		l.messages = append(l.messages, types.NewSystemMessage(systemPrompt))
		l.manager.Add(systemPrompt, contextwindow.TypeConfig, contextwindow.WithSource("system"))
	}

	itemType := contextwindow.TypeHistory
	if looksPasted(userPrompt) {
		itemType = contextwindow.TypeUserPaste
	}
	l.messages = append(l.messages, types.NewUserMessage(userPrompt))
	l.manager.Add(userPrompt, itemType, contextwindow.WithSource("user"))
}

func looksPasted(prompt string) bool {
	return len(prompt) >= pasteSizeThreshold ||
		strings.Count(prompt, "\n")+1 >= pasteLineThreshold
}

// checkQuota asks the tracker for admission using the 4-chars-per-token
// estimate over all messages plus the output reservation.
func (l *Loop) checkQuota() error {
	if l.tracker == nil {
		return nil
	}

	estimate := l.promptEstimate() + l.outputReservation
	decision := l.tracker.CanMakeRequest(estimate)
	if !decision.Allowed {
		debugLog.Warnf("quota denied request of ~%d tokens: %s", estimate, decision.Reason)
		return &QuotaError{Reason: decision.Reason}
	}
	return nil
}

func (l *Loop) promptEstimate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.estimator.CountMessagesTokens(l.messages)
}

// callModel issues one provider request and returns the accumulated
// response text. Token usage is recorded with the quota tracker for every
// completed attempt, successful or not; a denied stream chunk or transport
// error still consumed quota upstream.
func (l *Loop) callModel(ctx context.Context) (string, error) {
	l.mu.Lock()
	provider := l.provider
	messages := make([]*types.Message, len(l.messages))
	copy(messages, l.messages)
	l.mu.Unlock()

	promptTokens := l.estimator.CountMessagesTokens(messages)

	var response string
	var err error
	if l.streaming {
		response, err = l.consumeStream(ctx, provider, messages)
	} else {
		var msg *types.Message
		msg, err = provider.Complete(ctx, messages)
		if msg != nil {
			response = msg.Content
		}
	}

	completionTokens := l.estimator.CountTokens(response)

	// One record per completed network attempt, regardless of outcome.
	if l.tracker != nil {
		l.tracker.RecordRequest(promptTokens + completionTokens)
	}
	l.mu.Lock()
	l.lastUsage = types.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
	l.mu.Unlock()

	if err != nil {
		if l.isCancelled(ctx) {
			return "", ErrCancelled
		}
		return "", &ProviderError{Err: err}
	}
	return response, nil
}

// consumeStream forwards chunks to the sink as they arrive, re-checking
// cancellation before each chunk so cancellation takes effect mid-stream,
// not only between iterations.
func (l *Loop) consumeStream(ctx context.Context, provider llm.Provider, messages []*types.Message) (string, error) {
	chunks, err := provider.StreamCompletion(ctx, messages)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for chunk := range chunks {
		if l.isCancelled(ctx) {
			// Drain so the provider goroutine can exit.
			for range chunks {
			}
			return builder.String(), ErrCancelled
		}
		if chunk.IsError() {
			return builder.String(), chunk.Error
		}
		if chunk.Content != "" {
			builder.WriteString(chunk.Content)
			if l.sink != nil {
				l.sink(chunk.Content)
			}
		}
	}
	return builder.String(), nil
}

// recordAssistantTurn appends the model's response to history and to the
// context window manager.
func (l *Loop) recordAssistantTurn(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, types.NewAssistantMessage(content))
	l.manager.Add(content, contextwindow.TypeHistory, contextwindow.WithSource("assistant"))
}

// dispatchBatch executes parsed tool calls strictly in order. Individual
// tool failures and approval rejections become tool-result messages the
// model sees on the next iteration; only cancellation aborts the batch,
// leaving later calls undispatched.
func (l *Loop) dispatchBatch(ctx context.Context, calls []parser.ToolCall) error {
	for _, call := range calls {
		if l.isCancelled(ctx) {
			return ErrCancelled
		}

		result, err := l.executeCall(ctx, call)
		l.appendToolResult(call, result, err)
	}
	return nil
}

func (l *Loop) executeCall(ctx context.Context, call parser.ToolCall) (string, error) {
	if l.executor == nil {
		return "", fmt.Errorf("no tool executor configured")
	}

	if l.requiresApproval(call) {
		approved, err := l.gate.Approve(ctx, call)
		if err != nil {
			return "", fmt.Errorf("approval failed: %w", err)
		}
		if !approved {
			return "", fmt.Errorf("tool call denied by user")
		}
	}

	debugLog.Debugf("dispatching tool %s (%s)", call.Name, call.ID)
	return l.executor.Execute(ctx, call)
}

func (l *Loop) requiresApproval(call parser.ToolCall) bool {
	if l.gate == nil {
		return false
	}
	checker, ok := l.executor.(SensitivityChecker)
	return ok && checker.Sensitive(call.Name)
}

// appendToolResult synthesizes the tool-result message the model reads on
// the next iteration. File reads land in the context window as file items;
// every other tool's output is eviction-fodder tool output.
func (l *Loop) appendToolResult(call parser.ToolCall, result string, err error) {
	var body string
	if err != nil {
		body = fmt.Sprintf("TOOL_RESULT %s\nname: %s\nerror: %s", call.ID, call.Name, err.Error())
	} else {
		body = fmt.Sprintf("TOOL_RESULT %s\nname: %s\noutput:\n%s", call.ID, call.Name, result)
	}

	itemType := contextwindow.TypeToolOutput
	if call.Name == "read_file" && err == nil {
		itemType = contextwindow.TypeFile
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, types.NewUserMessage(body))
	l.manager.Add(body, itemType, contextwindow.WithSource(call.Name))
}
