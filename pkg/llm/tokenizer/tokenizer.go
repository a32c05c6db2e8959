// Package tokenizer provides token estimation for prompt sizing and quota
// admission. Estimation is deliberately pluggable: the accurate Tokenizer is
// backed by tiktoken, while Heuristic applies the common 4-characters-per-
// token approximation. Provider-specific tokenizers disagree at the margin,
// so callers must treat every estimate as approximate.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/quillhq/quill/pkg/types"
)

// messageOverheadTokens approximates the per-message framing cost
// (role markers, separators) the chat format adds on the wire.
const messageOverheadTokens = 3

// Estimator counts or approximates tokens for strings and message sequences.
type Estimator interface {
	// CountTokens returns the estimated token count for a single string.
	CountTokens(text string) int

	// CountMessagesTokens returns the estimated token count for a message
	// sequence, including per-message framing overhead.
	CountMessagesTokens(messages []*types.Message) int
}

// Tokenizer is an Estimator backed by the cl100k_base BPE encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a Tokenizer using the cl100k_base encoding.
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the exact token count under the loaded encoding.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the token count for a message sequence.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(string(msg.Role)) + t.CountTokens(msg.Content) + messageOverheadTokens
	}
	return total
}

// Heuristic is an Estimator using the 4-characters-per-token rule of thumb.
// It needs no encoding data and never fails, which makes it the fallback
// when the BPE tables cannot be loaded.
type Heuristic struct{}

// CountTokens approximates tokens as len(text)/4, rounding up.
func (Heuristic) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountMessagesTokens approximates tokens for a message sequence.
func (h Heuristic) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += h.CountTokens(string(msg.Role)) + h.CountTokens(msg.Content) + messageOverheadTokens
	}
	return total
}

// Default returns the tiktoken-backed Tokenizer, or Heuristic when the
// encoding tables are unavailable.
func Default() Estimator {
	tok, err := New()
	if err != nil {
		return Heuristic{}
	}
	return tok
}
