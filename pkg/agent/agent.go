// Package agent implements the bounded conversational agent runtime: the
// iteration state machine that drives a model call, classifies its output,
// dispatches tool calls, and loops until the model emits a final answer,
// all under a context budget, provider quotas, and cooperative cancellation.
//
// A Loop owns its message history and context window manager exclusively;
// nothing outside the loop mutates them. The provider can be swapped at
// runtime via UpdateClient without losing conversation state.
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/quillhq/quill/pkg/agent/approval"
	"github.com/quillhq/quill/pkg/agent/contextwindow"
	"github.com/quillhq/quill/pkg/agent/quota"
	"github.com/quillhq/quill/pkg/llm"
	"github.com/quillhq/quill/pkg/llm/parser"
	"github.com/quillhq/quill/pkg/llm/tokenizer"
	"github.com/quillhq/quill/pkg/logging"
	"github.com/quillhq/quill/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("agent")
	if err != nil {
		debugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

const (
	// defaultMaxIterations bounds the request/parse/dispatch cycle.
	defaultMaxIterations = 20

	// defaultOutputReservation is the token allowance added to the prompt
	// estimate for the model's own output when asking the quota tracker
	// for admission.
	defaultOutputReservation = 4096

	// defaultCompactionNote seeds the conversation after a compaction.
	defaultCompactionNote = "Earlier conversation history was compacted away at the user's request."
)

// Executor performs the effect of a parsed tool call and returns its
// result. Any error is a recoverable per-call failure, never loop-fatal.
type Executor interface {
	Execute(ctx context.Context, call parser.ToolCall) (string, error)
}

// SensitivityChecker is optionally implemented by executors that can flag
// calls requiring approval before dispatch.
type SensitivityChecker interface {
	Sensitive(name string) bool
}

// Sink receives streamed response chunks as they arrive.
type Sink func(chunk string)

// Loop is the orchestrator of one conversation.
type Loop struct {
	provider  llm.Provider
	executor  Executor
	gate      approval.Gate
	tracker   *quota.Tracker
	manager   *contextwindow.Manager
	estimator tokenizer.Estimator

	systemPrompt      string
	maxIterations     int
	outputReservation int
	streaming         bool
	sink              Sink

	messages  []*types.Message
	lastUsage types.TokenUsage
	mu        sync.Mutex // protects provider, systemPrompt, messages, lastUsage
	running   atomic.Bool
	cancelled atomic.Bool
	cancelRun context.CancelFunc
	cancelMu  sync.Mutex
}

// Option configures a Loop.
type Option func(*Loop)

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(l *Loop) {
		l.systemPrompt = prompt
	}
}

// WithMaxIterations bounds how many model calls one Run may make.
func WithMaxIterations(max int) Option {
	return func(l *Loop) {
		l.maxIterations = max
	}
}

// WithExecutor sets the tool executor consulted for tool-call dispatch.
// Without an executor every tool call fails recoverably.
func WithExecutor(executor Executor) Option {
	return func(l *Loop) {
		l.executor = executor
	}
}

// WithApprovalGate sets the gate consulted before sensitive tool calls.
func WithApprovalGate(gate approval.Gate) Option {
	return func(l *Loop) {
		l.gate = gate
	}
}

// WithQuotaTracker sets the tracker that gates every model request.
func WithQuotaTracker(tracker *quota.Tracker) Option {
	return func(l *Loop) {
		l.tracker = tracker
	}
}

// WithContextManager sets the context window manager. Without one, a
// manager is created from the provider's model context size.
func WithContextManager(manager *contextwindow.Manager) Option {
	return func(l *Loop) {
		l.manager = manager
	}
}

// WithEstimator sets the token estimator used for quota admission. When no
// context manager is supplied, the manager created by New uses it too.
func WithEstimator(estimator tokenizer.Estimator) Option {
	return func(l *Loop) {
		l.estimator = estimator
	}
}

// WithSink sets the destination for streamed chunks and enables streaming.
func WithSink(sink Sink) Option {
	return func(l *Loop) {
		l.sink = sink
		l.streaming = true
	}
}

// WithOutputReservation sets the token allowance reserved for model output
// during quota admission.
func WithOutputReservation(tokens int) Option {
	return func(l *Loop) {
		l.outputReservation = tokens
	}
}

// New creates a Loop around the given provider.
func New(provider llm.Provider, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider is required")
	}

	l := &Loop{
		provider:          provider,
		systemPrompt:      defaultSystemPrompt,
		maxIterations:     defaultMaxIterations,
		outputReservation: defaultOutputReservation,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.manager == nil {
		maxContext := 0
		if info := provider.GetModelInfo(); info != nil {
			maxContext = info.MaxTokens
		}
		// An explicit estimator governs both quota admission and context
		// accounting; otherwise the manager picks its own tokenizer-backed
		// default while quota admission stays on the cheap heuristic.
		var managerOpts []contextwindow.ManagerOption
		if l.estimator != nil {
			managerOpts = append(managerOpts, contextwindow.WithEstimator(l.estimator))
		}
		l.manager = contextwindow.NewManager(maxContext, managerOpts...)
	}
	if l.estimator == nil {
		l.estimator = tokenizer.Heuristic{}
	}

	return l, nil
}

// Cancel requests cooperative cancellation of the in-flight run. It takes
// effect at the next suspension point: the top of an iteration, before the
// next stream chunk, or before the next tool call. Side effects already
// committed by tools are not rolled back.
func (l *Loop) Cancel() {
	l.cancelled.Store(true)

	l.cancelMu.Lock()
	if l.cancelRun != nil {
		l.cancelRun()
	}
	l.cancelMu.Unlock()
}

// Reset discards the conversation entirely: message history and all
// retained context items, configuration included. The next Run starts a
// fresh conversation.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
	l.manager.Clear(false)
}

// UpdateSystemPrompt replaces the system prompt. An existing conversation
// keeps its history; the leading system message is rewritten in place.
func (l *Loop) UpdateSystemPrompt(prompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.systemPrompt = prompt
	if len(l.messages) > 0 && l.messages[0].Role == types.RoleSystem {
		rebuilt := l.buildSystemPrompt()
		l.messages[0] = types.NewSystemMessage(rebuilt)
		l.manager.ReplaceSource(contextwindow.TypeConfig, "system", rebuilt)
	}
}

// UpdateClient swaps the LLM provider. Together with SwitchModel these
// are the only sanctioned mutation paths for the provider reference;
// conversation history is preserved across the switch.
func (l *Loop) UpdateClient(provider llm.Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.provider = provider
	return nil
}

// SwitchModel redirects the conversation to a different model on the same
// provider backend, preserving history. The provider must implement
// llm.ModelCloner.
func (l *Loop) SwitchModel(model string) error {
	if model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cloner, ok := l.provider.(llm.ModelCloner)
	if !ok {
		return fmt.Errorf("provider %s does not support model switching", l.provider.GetModelInfo().Provider)
	}
	l.provider = cloner.CloneWithModel(model)
	return nil
}

// CompactHistory collapses the conversation to the system message plus a
// single note, preserving only configuration items in the context window
// manager. This is an explicit user-triggered reset of conversational
// weight, distinct from automatic eviction.
func (l *Loop) CompactHistory(note string) {
	if note == "" {
		note = defaultCompactionNote
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = []*types.Message{
		types.NewSystemMessage(l.buildSystemPrompt()),
		types.NewAssistantMessage(note),
	}
	l.manager.Clear(true)

	debugLog.Infof("history compacted, %d context tokens retained", l.manager.CurrentUsage())
}

// History returns a copy of the conversation's message sequence.
func (l *Loop) History() []*types.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := make([]*types.Message, len(l.messages))
	copy(history, l.messages)
	return history
}

// ContextManager exposes the loop's context window manager for display
// surfaces (usage views, structured context rendering).
func (l *Loop) ContextManager() *contextwindow.Manager {
	return l.manager
}

// LastUsage returns the estimated token accounting of the most recent
// model request, zero before the first request completes.
func (l *Loop) LastUsage() types.TokenUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUsage
}

// QuotaTracker exposes the loop's quota tracker, nil when unconfigured.
func (l *Loop) QuotaTracker() *quota.Tracker {
	return l.tracker
}
