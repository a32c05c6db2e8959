// Package types defines the shared data model for the quill agent runtime:
// conversation messages, roles, and token usage accounting.
package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem is the instruction message; at most one, always first.
	RoleUser      MessageRole = "user"      // RoleUser is input from the user (or a synthesized tool result).
	RoleAssistant MessageRole = "assistant" // RoleAssistant is model output.
)

// Message is a single entry in the conversation. The ordered message sequence
// is owned by the agent loop: it is only ever appended to or wholesale
// replaced (compaction/reset), never reordered.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated completion.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int
}

// ModelInfo describes the LLM model behind a provider.
type ModelInfo struct {
	// Provider is the provider family name (e.g., "openai", "cerebras").
	Provider string

	// Name is the model identifier sent on requests.
	Name string

	// MaxTokens is the model's context window size in tokens.
	MaxTokens int

	// SupportsStreaming indicates whether the provider can stream responses.
	SupportsStreaming bool

	// Metadata holds provider-specific details (base URL, etc.).
	Metadata map[string]interface{}
}
