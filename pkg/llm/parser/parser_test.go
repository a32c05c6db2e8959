package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFinalResponse(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "plain object",
			raw:      `{"final_response":"done"}`,
			expected: "done",
		},
		{
			name:     "surrounding whitespace",
			raw:      "\n  {\"final_response\":\"all tests pass\"}  \n",
			expected: "all tests pass",
		},
		{
			name:     "empty string is still final",
			raw:      `{"final_response":""}`,
			expected: "",
		},
		{
			name:     "extra fields ignored",
			raw:      `{"final_response":"ok","confidence":0.9}`,
			expected: "ok",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Parse(tc.raw)
			assert.Equal(t, KindFinal, outcome.Kind)
			assert.Equal(t, tc.expected, outcome.Message)
		})
	}
}

func TestParseToolBatch(t *testing.T) {
	raw := `{"tool_calls":[
		{"id":"c1","name":"read_file","input":{"path":"main.go"}},
		{"id":"c2","name":"execute_command","input":{"command":"go test ./..."}}
	]}`

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	require.Len(t, outcome.Calls, 2)

	assert.Equal(t, "c1", outcome.Calls[0].ID)
	assert.Equal(t, "read_file", outcome.Calls[0].Name)
	assert.Equal(t, "main.go", outcome.Calls[0].Input["path"])

	assert.Equal(t, "c2", outcome.Calls[1].ID)
	assert.Equal(t, "execute_command", outcome.Calls[1].Name)
}

func TestParseDropsInvalidCalls(t *testing.T) {
	raw := `{"tool_calls":[
		{"id":"","name":"read_file","input":{}},
		{"name":"write_file","input":{}},
		{"id":"c3","name":"","input":{}},
		{"id":"c4","name":"list_files"},
		{"id":"c5","name":"search_files","input":"not an object"},
		{"id":"ok","name":"read_file","input":{"path":"go.mod"}}
	]}`

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	require.Len(t, outcome.Calls, 1)
	assert.Equal(t, "ok", outcome.Calls[0].ID)
}

func TestParseAllCallsInvalidIsUnparsed(t *testing.T) {
	raw := `{"tool_calls":[{"id":"","name":"","input":{}},{"nonsense":true}]}`

	outcome := Parse(raw)
	assert.Equal(t, KindUnparsed, outcome.Kind)
	assert.Equal(t, raw, outcome.Raw)
}

func TestParseEmptyToolBatchIsUnparsed(t *testing.T) {
	raw := `{"tool_calls":[]}`

	outcome := Parse(raw)
	assert.Equal(t, KindUnparsed, outcome.Kind)
}

func TestParseFencedJSONBlock(t *testing.T) {
	raw := "Here is what I'll do next:\n```json\n" +
		`{"tool_calls":[{"id":"f1","name":"write_file","input":{"path":"a.txt","content":"hi"}}]}` +
		"\n```\nLet me know."

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	require.Len(t, outcome.Calls, 1)
	assert.Equal(t, "f1", outcome.Calls[0].ID)
	assert.Equal(t, "write_file", outcome.Calls[0].Name)
}

func TestParseFencedFinalResponse(t *testing.T) {
	raw := "Result:\n```json\n{\"final_response\":\"finished\"}\n```"

	outcome := Parse(raw)
	assert.Equal(t, KindFinal, outcome.Kind)
	assert.Equal(t, "finished", outcome.Message)
}

func TestParseMarkerSyntax(t *testing.T) {
	raw := "I need to inspect the file.\nAction: read_file\nAction Input: {\"path\": \"cmd/main.go\"}\n"

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	require.Len(t, outcome.Calls, 1)

	call := outcome.Calls[0]
	assert.Equal(t, "read_file", call.Name)
	assert.Equal(t, "cmd/main.go", call.Input["path"])
	assert.NotEmpty(t, call.ID, "marker-syntax calls get a generated id")
}

func TestParseMarkerSyntaxBracesInStrings(t *testing.T) {
	// The input value contains literal braces; a greedy regex would
	// truncate the object at the wrong brace.
	raw := "Action: write_file\nAction Input: {\"path\": \"x.go\", \"content\": \"func f() { if true { return } }\"}\nremaining text"

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	require.Len(t, outcome.Calls, 1)
	assert.Equal(t, "func f() { if true { return } }", outcome.Calls[0].Input["content"])
}

func TestParseMarkerSyntaxEscapedQuotes(t *testing.T) {
	raw := "Action: execute_command\nAction Input: {\"command\": \"echo \\\"{\\\"\"}\n"

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	assert.Equal(t, `echo "{"`, outcome.Calls[0].Input["command"])
}

func TestParseMarkerSyntaxNested(t *testing.T) {
	raw := "Action: apply_patch\nAction Input: {\"edits\": {\"outer\": {\"inner\": 1}}}\n"

	outcome := Parse(raw)
	require.Equal(t, KindToolBatch, outcome.Kind)
	edits, ok := outcome.Calls[0].Input["edits"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, edits, "outer")
}

func TestParseUnparsed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "plain prose", raw: "The bug is in the loop condition on line 42."},
		{name: "json array not object", raw: `[1, 2, 3]`},
		{name: "object without protocol fields", raw: `{"answer": 42}`},
		{name: "action without input", raw: "Action: read_file\nno input follows"},
		{name: "action input not closed", raw: "Action: read_file\nAction Input: {\"path\": \"x"},
		{name: "action name missing", raw: "Action: \nAction Input: {\"a\":1}"},
		{name: "empty", raw: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Parse(tc.raw)
			assert.Equal(t, KindUnparsed, outcome.Kind)
			assert.Equal(t, tc.raw, outcome.Raw)
		})
	}
}

func TestScanJSONObject(t *testing.T) {
	object, ok := scanJSONObject(`noise {"a": "}", "b": {"c": 1}} trailing`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}", "b": {"c": 1}}`, object)

	_, ok = scanJSONObject("no braces here")
	assert.False(t, ok)

	_, ok = scanJSONObject(`{"unterminated": `)
	assert.False(t, ok)
}
