package contextwindow

import "time"

// ItemType classifies a context item and determines its default retention
// priority.
type ItemType string

const (
	TypeConfig     ItemType = "config"      // system prompt, project instructions; never evicted
	TypeFile       ItemType = "file"        // file contents read into the conversation
	TypeUserPaste  ItemType = "user_paste"  // long-form content pasted by the user
	TypeHistory    ItemType = "history"     // assistant replies and user turns
	TypeToolOutput ItemType = "tool_output" // output from tool executions
)

// Default priority by type; higher survives longer. Explicit priority on
// Add overrides these.
var defaultPriority = map[ItemType]int{
	TypeConfig:     100,
	TypeFile:       50,
	TypeUserPaste:  40,
	TypeHistory:    30,
	TypeToolOutput: 10,
}

// Item is one retained fragment of conversation material. Items are owned
// exclusively by the Manager: created on Add, mutated in place only by
// compression, destroyed by eviction.
type Item struct {
	// Type classifies the item.
	Type ItemType

	// Priority controls eviction order; higher survives longer.
	Priority int

	// EstimatedTokens is the item's current token estimate, recomputed
	// after compression.
	EstimatedTokens int

	// LastAccessed is when the item was last added or touched.
	LastAccessed time.Time

	// Content is the item's text. Compression shortens it irreversibly.
	Content string

	// Source labels where the content came from (file path, tool name).
	Source string

	// SequenceIndex is the item's stable citation index: monotonically
	// increasing and unique while the item is live, re-numbered after any
	// eviction to close gaps.
	SequenceIndex int

	// compressed marks items already head/tail truncated.
	compressed bool
}
