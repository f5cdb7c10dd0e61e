// File: internal/mission/session_test.go
package mission

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/config"
)

func newTestSession(t *testing.T, browser *fakeBrowser, oracle *fakeOracle) *Session {
	t.Helper()
	s := NewSession("test-session", "find the release notes", browser, oracle,
		&fakeExtractor{digest: "page digest"}, config.SessionConfig{MaxConsecutiveFailures: 3}, zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, schemas.StatusActive, s.Status())
	return s
}

func TestSessionStepNavigate(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{responses: []string{
		`{"action": "navigate", "url": "https://example.com/releases", "reasoning": "go to the releases page"}`,
	}}
	s := newTestSession(t, browser, oracle)

	res, err := s.Step(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusActive, res.Status)
	assert.Equal(t, "navigate", res.Action)
	assert.Equal(t, "https://example.com/releases", res.URL)
	assert.Equal(t, "page digest", res.ExtractedContent)
	assert.NotEmpty(t, res.Screenshot)
	assert.Empty(t, res.FinalURL)

	require.Len(t, res.Log, 1)
	assert.Equal(t, 1, res.Log[0].Step)
	assert.Equal(t, "navigate https://example.com/releases", res.Log[0].Action)
	assert.Equal(t, "[Step 1] go to the releases page", res.Log[0].Render())

	assert.Contains(t, browser.callLog(), "navigate https://example.com/releases")

	req := oracle.lastRequest()
	assert.Equal(t, "find the release notes", req.Objective)
	assert.Equal(t, "about:blank", req.CurrentURL)
	assert.NotEmpty(t, req.Screenshot)
	assert.Empty(t, req.History)
}

func TestSessionStepFinish(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{responses: []string{
		`{"action": "navigate", "url": "https://example.com", "reasoning": "start"}`,
		`{"action": "finish", "summary": "found version 2.0", "reasoning": "objective met"}`,
	}}
	s := newTestSession(t, browser, oracle)

	_, err := s.Step(context.Background())
	require.NoError(t, err)

	res, err := s.Step(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusCompleted, res.Status)
	assert.Equal(t, "finish", res.Action)
	assert.Equal(t, "https://example.com", res.FinalURL)
	assert.Equal(t, "found version 2.0", res.ExtractedContent)
	require.Len(t, res.Log, 2)
	assert.Equal(t, "finish", res.Log[1].Action)
}

func TestSessionStepOnTerminalReturnsSnapshot(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{responses: []string{
		`{"action": "finish", "summary": "done", "reasoning": "done"}`,
	}}
	s := newTestSession(t, browser, oracle)

	first, err := s.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, schemas.StatusCompleted, first.Status)

	calls := len(browser.callLog())
	again, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusCompleted, again.Status)
	assert.Equal(t, first.Log, again.Log)
	assert.Equal(t, calls, len(browser.callLog()), "terminal step must not touch the browser")
}

func TestSessionFailureBudgetExhaustion(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{responses: []string{`this is not json at all`}}
	s := newTestSession(t, browser, oracle)

	var res schemas.StepResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = s.Step(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, schemas.StatusFailed, res.Status)
	// Three failure entries plus the abort record.
	require.Len(t, res.Log, 4)
	assert.NotEmpty(t, res.Log[0].Error)
	assert.Equal(t, "abort", res.Log[3].Action)
	assert.Contains(t, res.Log[3].Reasoning, "failure budget exhausted")

	// Failing again must not produce a second abort entry.
	again, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Len(t, again.Log, 4)
}

func TestSessionSuccessResetsFailureBudget(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{responses: []string{
		`garbage`,
		`garbage`,
		`{"action": "scroll", "direction": "down", "reasoning": "look further"}`,
		`garbage`,
		`garbage`,
	}}
	s := newTestSession(t, browser, oracle)

	for i := 0; i < 5; i++ {
		res, err := s.Step(context.Background())
		require.NoError(t, err)
		assert.Equal(t, schemas.StatusActive, res.Status, "step %d", i+1)
	}
	assert.Equal(t, schemas.StatusActive, s.Status())
}

func TestSessionOracleTimeoutIsRecoverable(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{decideErr: schemas.ErrOracleTimeout}
	s := newTestSession(t, browser, oracle)

	res, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusActive, res.Status)
	require.Len(t, res.Log, 1)
	assert.Contains(t, res.Log[0].Error, "timed out")
}

func TestSessionBrowserFatalFailsImmediately(t *testing.T) {
	browser := newFakeBrowser()
	browser.navigateErr = &schemas.BrowserFatalError{Err: errors.New("target crashed")}
	oracle := &fakeOracle{responses: []string{
		`{"action": "navigate", "url": "https://example.com", "reasoning": "go"}`,
	}}
	s := newTestSession(t, browser, oracle)

	res, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusFailed, res.Status)
	assert.Contains(t, res.Log[len(res.Log)-1].Reasoning, "unrecoverable")
	assert.True(t, browser.closed, "a failed mission must release its browser")
}

func TestSessionActionErrorIsRecoverable(t *testing.T) {
	browser := newFakeBrowser()
	browser.clickErr = &schemas.ActionExecutionError{Action: "click", Reason: "no visible element matches \"#gone\""}
	oracle := &fakeOracle{responses: []string{
		`{"action": "click", "selector": "#gone", "reasoning": "try the button"}`,
	}}
	s := newTestSession(t, browser, oracle)

	res, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusActive, res.Status)
	assert.True(t, schemas.Recoverable(browser.clickErr))
}

func TestSessionDestroyIsIdempotent(t *testing.T) {
	browser := newFakeBrowser()
	s := newTestSession(t, browser, &fakeOracle{})

	require.NoError(t, s.Destroy())
	require.NoError(t, s.Destroy())
	assert.True(t, browser.closed)

	_, err := s.Step(context.Background())
	assert.ErrorIs(t, err, schemas.ErrSessionNotFound)
}

func TestSessionDestroyCancelsInFlightStep(t *testing.T) {
	browser := newFakeBrowser()
	browser.blockUntilCtx = true
	oracle := &fakeOracle{responses: []string{
		`{"action": "navigate", "url": "https://example.com", "reasoning": "go"}`,
	}}
	s := newTestSession(t, browser, oracle)

	var wg sync.WaitGroup
	wg.Add(1)
	stepErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := s.Step(context.Background())
		stepErr <- err
	}()

	// Wait for the step to reach the blocking navigate.
	require.Eventually(t, func() bool {
		for _, call := range browser.callLog() {
			if strings.HasPrefix(call, "navigate") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Destroy())
	wg.Wait()

	assert.ErrorIs(t, <-stepErr, schemas.ErrSessionNotFound)
	assert.True(t, browser.closed)
}

func TestSessionHistoryCondensation(t *testing.T) {
	browser := newFakeBrowser()
	oracle := &fakeOracle{
		responses: []string{`{"action": "scroll", "direction": "down", "reasoning": "keep looking"}`},
		condensed: "visited the docs and found nothing yet",
	}
	s := newTestSession(t, browser, oracle)

	for i := 0; i < condenseSlack+2; i++ {
		_, err := s.Step(context.Background())
		require.NoError(t, err)
	}

	history := oracle.lastRequest().History
	require.NotEmpty(t, history)
	assert.Contains(t, history[0], "condensed")
	assert.Contains(t, history[0], "visited the docs")
	assert.LessOrEqual(t, len(history), historyLookback+2)
	assert.Contains(t, history[len(history)-1], "keep looking")
}
