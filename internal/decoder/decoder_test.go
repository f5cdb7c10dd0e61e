// File: internal/decoder/decoder_test.go
package decoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reasonos/websurfer/api/schemas"
)

func TestDecodeNavigate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		current string
		want    string
	}{
		{
			name: "absolute url",
			raw:  `{"action": "navigate", "url": "https://example.com/docs", "reasoning": "open docs"}`,
			want: "https://example.com/docs",
		},
		{
			name: "bare host gets https",
			raw:  `{"action": "navigate", "url": "reddit.com/r/golang"}`,
			want: "https://reddit.com/r/golang",
		},
		{
			name:    "relative path resolves against current page",
			raw:     `{"action": "navigate", "url": "/pricing"}`,
			current: "https://example.com/about",
			want:    "https://example.com/pricing",
		},
		{
			name: "markdown fenced payload",
			raw:  "Here is my decision:\n```json\n{\"action\": \"navigate\", \"url\": \"https://example.com\"}\n```\nDone.",
			want: "https://example.com",
		},
		{
			name: "conversational padding around bare object",
			raw:  `Sure! {"action": "navigate", "url": "https://example.com"} is the move.`,
			want: "https://example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode(tt.raw, tt.current)
			require.NoError(t, err)
			assert.Equal(t, schemas.ActionNavigate, cmd.Kind)
			assert.Equal(t, tt.want, cmd.URL)
		})
	}
}

func TestDecodeNavigateRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing url", `{"action": "navigate"}`},
		{"non-web scheme", `{"action": "navigate", "url": "file:///etc/passwd"}`},
		{"javascript scheme", `{"action": "navigate", "url": "javascript:alert(1)"}`},
		{"relative with no base", `{"action": "navigate", "url": "/pricing"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw, "")
			var de *schemas.DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestDecodeClickAndType(t *testing.T) {
	cmd, err := Decode(`{"action": "click", "selector": "#submit", "reasoning": "press the button"}`, "")
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionClick, cmd.Kind)
	assert.Equal(t, "#submit", cmd.Target)
	assert.Equal(t, "press the button", cmd.Rationale)

	cmd, err = Decode(`{"action": "type", "selector": "input[name=q]", "text": "golang generics"}`, "")
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionType, cmd.Kind)
	assert.Equal(t, "input[name=q]", cmd.Target)
	assert.Equal(t, "golang generics", cmd.Text)

	_, err = Decode(`{"action": "click", "selector": "  "}`, "")
	var de *schemas.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Reason, "target")

	_, err = Decode(`{"action": "type", "text": "hello"}`, "")
	require.ErrorAs(t, err, &de)
}

func TestDecodeScroll(t *testing.T) {
	cmd, err := Decode(`{"action": "scroll", "direction": "Down", "amount": 450}`, "")
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionScroll, cmd.Kind)
	assert.Equal(t, schemas.ScrollDown, cmd.Direction)
	assert.Equal(t, 450, cmd.Amount)

	// Amount is optional; the browser picks a viewport-sized default.
	cmd, err = Decode(`{"action": "scroll", "direction": "up"}`, "")
	require.NoError(t, err)
	assert.Equal(t, 0, cmd.Amount)

	_, err = Decode(`{"action": "scroll", "direction": "sideways"}`, "")
	var de *schemas.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDecodeFinish(t *testing.T) {
	cmd, err := Decode(`{"action": "finish", "summary": "found the answer: 42", "reasoning": "done"}`, "")
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionFinish, cmd.Kind)
	assert.Equal(t, "found the answer: 42", cmd.Summary)

	// Summary falls back to the reasoning text.
	cmd, err = Decode(`{"action": "finish", "reasoning": "the page was unreachable"}`, "")
	require.NoError(t, err)
	assert.Equal(t, "the page was unreachable", cmd.Summary)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose only", "I think we should probably click something."},
		{"malformed json", `{"action": "click", "selector": }`},
		{"missing action", `{"url": "https://example.com"}`},
		{"unknown action", `{"action": "teleport"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw, "https://example.com")
			var de *schemas.DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestDecodeErrorTruncatesRawPayload(t *testing.T) {
	raw := strings.Repeat("x", 5000)
	_, err := Decode(raw, "")
	var de *schemas.DecodeError
	require.ErrorAs(t, err, &de)
	assert.LessOrEqual(t, len(de.Raw), maxRawSnippet+3)
}

func TestDecodeNeverDefaultsOnAmbiguity(t *testing.T) {
	// Two complete objects in one payload: brace-bounds extraction spans both
	// and fails to parse rather than silently picking one.
	raw := `{"action": "click", "selector": "#a"} {"action": "navigate", "url": "https://example.com"}`
	_, err := Decode(raw, "")
	var de *schemas.DecodeError
	require.ErrorAs(t, err, &de)
}
