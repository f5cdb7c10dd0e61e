// File: api/schemas/schemas_test.go
package schemas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseActionKind(t *testing.T) {
	for raw, want := range map[string]ActionKind{
		"navigate": ActionNavigate,
		"CLICK":    ActionClick,
		" Type ":   ActionType,
		"scroll":   ActionScroll,
		"Finish":   ActionFinish,
	} {
		kind, ok := ParseActionKind(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, kind)
	}

	for _, raw := range []string{"", "teleport", "nav igate"} {
		_, ok := ParseActionKind(raw)
		assert.False(t, ok, raw)
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, StatusInitializing.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestLogEntryRender(t *testing.T) {
	entry := LogEntry{Step: 3, Timestamp: time.Now(), Action: "click #go", Reasoning: "pressing the search button"}
	assert.Equal(t, "[Step 3] pressing the search button", entry.Render())

	entry.Error = "element not found"
	assert.Equal(t, "[Step 3] pressing the search button (error: element not found)", entry.Render())
}

func TestActionCommandString(t *testing.T) {
	assert.Equal(t, "navigate https://example.com", ActionCommand{Kind: ActionNavigate, URL: "https://example.com"}.String())
	assert.Equal(t, "click Sign in", ActionCommand{Kind: ActionClick, Target: "Sign in"}.String())
	assert.Equal(t, "type into #q", ActionCommand{Kind: ActionType, Target: "#q", Text: "query"}.String())
	assert.Equal(t, "scroll down", ActionCommand{Kind: ActionScroll, Direction: ScrollDown}.String())
	assert.Equal(t, "finish", ActionCommand{Kind: ActionFinish, Summary: "done"}.String())
	assert.Equal(t, "unknown", ActionCommand{}.String())
}

func TestRecoverableClassification(t *testing.T) {
	assert.True(t, Recoverable(&DecodeError{Reason: "missing action tag"}))
	assert.True(t, Recoverable(&ActionExecutionError{Action: "click", Reason: "not found"}))
	assert.True(t, Recoverable(ErrOracleTimeout))

	assert.False(t, Recoverable(nil))
	assert.False(t, Recoverable(errors.New("arbitrary")))
	assert.False(t, Recoverable(&BrowserFatalError{Err: errors.New("process died")}))
	assert.False(t, Recoverable(&InitializationError{Err: errors.New("no chrome binary")}))
}
