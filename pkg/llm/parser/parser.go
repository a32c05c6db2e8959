// Package parser classifies raw model output into the tool-call protocol.
//
// A model response is interpreted, in order, as: a strict JSON object
// carrying either a final answer or a tool-call batch; a fenced ```json
// block carrying the same; or the legacy marker syntax ("Action:" /
// "Action Input:"). Anything else is Unparsed, which callers treat as a
// final answer in its own right, not as an error.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// OutcomeKind discriminates the variants of an Outcome.
type OutcomeKind int

const (
	// KindFinal means the model emitted a final answer.
	KindFinal OutcomeKind = iota

	// KindToolBatch means the model requested one or more tool calls.
	KindToolBatch

	// KindUnparsed means the response matched no protocol form; the raw
	// text stands as the answer.
	KindUnparsed
)

// ToolCall is a structured instruction naming a local capability and its
// arguments. Immutable once created.
type ToolCall struct {
	// ID identifies the call within its batch. Model-supplied for JSON
	// batches, generated for marker-syntax calls.
	ID string

	// Name is the tool to invoke.
	Name string

	// Input holds the tool's arguments.
	Input map[string]interface{}
}

// Outcome is the classification of one model response. Exactly one variant
// applies, selected by Kind.
type Outcome struct {
	Kind OutcomeKind

	// Message is the final answer text (KindFinal).
	Message string

	// Calls is the tool batch, never empty (KindToolBatch).
	Calls []ToolCall

	// Raw is the original response text (KindUnparsed).
	Raw string
}

// fencedJSONRegex extracts the body of the first ```json fenced block.
var fencedJSONRegex = regexp.MustCompile("(?s)```json\\s*(.*?)```")

const (
	actionMarker      = "Action:"
	actionInputMarker = "Action Input:"
)

// Parse classifies raw model output. It never fails: input that matches no
// protocol form yields an Unparsed outcome carrying the original text.
func Parse(raw string) Outcome {
	trimmed := strings.TrimSpace(raw)

	if outcome, ok := parseJSONObject(trimmed); ok {
		return outcome
	}

	if body, ok := extractFencedJSON(trimmed); ok {
		if outcome, ok := parseJSONObject(body); ok {
			return outcome
		}
	}

	if outcome, ok := parseMarkerSyntax(trimmed); ok {
		return outcome
	}

	return Outcome{Kind: KindUnparsed, Raw: raw}
}

// parseJSONObject attempts the strict JSON interpretation. The second return
// is false when the text is not a JSON object or decodes to an object with
// neither a usable final_response nor a usable tool_calls field.
func parseJSONObject(text string) (Outcome, bool) {
	var object map[string]interface{}
	if err := json.Unmarshal([]byte(text), &object); err != nil {
		return Outcome{}, false
	}

	if message, ok := object["final_response"].(string); ok {
		return Outcome{Kind: KindFinal, Message: message}, true
	}

	rawCalls, ok := object["tool_calls"].([]interface{})
	if !ok {
		return Outcome{}, false
	}

	calls := filterValidCalls(rawCalls)
	if len(calls) == 0 {
		// A batch with zero valid calls is a parse failure, never an
		// empty ToolBatch.
		return Outcome{}, false
	}
	return Outcome{Kind: KindToolBatch, Calls: calls}, true
}

// filterValidCalls keeps elements with a non-empty string id, a non-empty
// string name, and an object input. Invalid elements are dropped without
// attempting partial recovery.
func filterValidCalls(rawCalls []interface{}) []ToolCall {
	calls := make([]ToolCall, 0, len(rawCalls))
	for _, raw := range rawCalls {
		element, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := element["id"].(string)
		if !ok || id == "" {
			continue
		}
		name, ok := element["name"].(string)
		if !ok || name == "" {
			continue
		}
		input, ok := element["input"].(map[string]interface{})
		if !ok {
			continue
		}
		calls = append(calls, ToolCall{ID: id, Name: name, Input: input})
	}
	return calls
}

// extractFencedJSON returns the body of the first ```json fenced block.
func extractFencedJSON(text string) (string, bool) {
	matches := fencedJSONRegex.FindStringSubmatch(text)
	if len(matches) < 2 {
		return "", false
	}
	body := strings.TrimSpace(matches[1])
	if body == "" {
		return "", false
	}
	return body, true
}

// parseMarkerSyntax handles the "Action:" / "Action Input:" form. The input
// object is located by balanced-brace scanning rather than regex matching
// because tool inputs may contain literal braces inside string values.
func parseMarkerSyntax(text string) (Outcome, bool) {
	actionIdx := strings.Index(text, actionMarker)
	if actionIdx < 0 {
		return Outcome{}, false
	}

	rest := text[actionIdx+len(actionMarker):]
	lineEnd := strings.IndexByte(rest, '\n')
	if lineEnd < 0 {
		return Outcome{}, false
	}
	name := strings.TrimSpace(rest[:lineEnd])
	if name == "" {
		return Outcome{}, false
	}

	afterAction := rest[lineEnd:]
	inputIdx := strings.Index(afterAction, actionInputMarker)
	if inputIdx < 0 {
		return Outcome{}, false
	}

	object, ok := scanJSONObject(afterAction[inputIdx+len(actionInputMarker):])
	if !ok {
		return Outcome{}, false
	}

	var input map[string]interface{}
	if err := json.Unmarshal([]byte(object), &input); err != nil {
		return Outcome{}, false
	}

	return Outcome{
		Kind:  KindToolBatch,
		Calls: []ToolCall{{ID: uuid.New().String(), Name: name, Input: input}},
	}, true
}

// scanJSONObject extracts the first balanced JSON object from text,
// respecting string literals and escape sequences.
func scanJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
