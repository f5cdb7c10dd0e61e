// File: internal/mission/session.go
package mission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/config"
	"github.com/reasonos/websurfer/internal/decoder"
)

const (
	// historyLookback is how many recent log entries ride verbatim in a
	// decision request; older entries are condensed.
	historyLookback = 8
	// condenseSlack delays re-condensation until this many entries have
	// accumulated past the last condensed point.
	condenseSlack = 2 * historyLookback
)

// Session drives one mission: a dedicated browser, an objective, and the
// decide-execute loop that works toward it. Steps are serialized; Destroy may
// be called at any time, including while a step is in flight, and wins.
type Session struct {
	ID        string
	Objective string
	CreatedAt time.Time

	browser   Browser
	oracle    Oracle
	extractor Extractor
	cfg       config.SessionConfig
	logger    *zap.Logger

	destroyed atomic.Bool

	cancelMu   sync.Mutex
	cancelStep context.CancelFunc

	mu                  sync.Mutex
	status              schemas.SessionStatus
	log                 []schemas.LogEntry
	stepCount           int
	consecutiveFailures int
	condensed           string
	condensedThrough    int
	extracted           string
	finalSummary        string
	lastScreenshot      []byte
	lastAction          string
	lastURL             string
	lastActive          time.Time
}

// NewSession wraps an already-launched browser. The session starts in the
// initializing state; Start flips it to active once the browser is confirmed
// reachable.
func NewSession(id, objective string, browser Browser, oracle Oracle, extractor Extractor, cfg config.SessionConfig, logger *zap.Logger) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Objective:  objective,
		CreatedAt:  now,
		browser:    browser,
		oracle:     oracle,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger.Named("session").With(zap.String("session_id", id)),
		status:     schemas.StatusInitializing,
		lastURL:    "about:blank",
		lastActive: now,
	}
}

// Start verifies the browser and activates the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.browser.Healthy() {
		s.status = schemas.StatusFailed
		return &schemas.InitializationError{Err: fmt.Errorf("browser unreachable after launch")}
	}
	if shot, err := s.browser.Screenshot(ctx); err == nil {
		s.lastScreenshot = shot
	}
	s.status = schemas.StatusActive
	s.logger.Info("Session active", zap.String("objective", s.Objective))
	return nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() schemas.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActive returns the time of the most recent step or creation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns the session's current result view without advancing it.
func (s *Session) Snapshot() schemas.StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked()
}

// Step runs one decide-execute cycle: capture the viewport, consult the
// oracle, decode, execute, extract. Recoverable failures are logged into the
// mission log and counted against the consecutive-failure budget; exhausting
// the budget or losing the browser fails the session. The returned error is
// non-nil only when the session is gone or the caller's context ended; mission
// failures are reported through the result's status and log.
func (s *Session) Step(ctx context.Context) (schemas.StepResult, error) {
	if s.destroyed.Load() {
		return schemas.StepResult{}, schemas.ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed.Load() {
		return schemas.StepResult{}, schemas.ErrSessionNotFound
	}
	if s.status.Terminal() {
		return s.resultLocked(), nil
	}
	if s.status != schemas.StatusActive {
		return schemas.StepResult{}, fmt.Errorf("session %s is not active (status %s)", s.ID, s.status)
	}

	stepCtx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	s.stepCount++
	s.lastActive = time.Now()
	step := s.stepCount
	log := s.logger.With(zap.Int("step", step))

	// Capture the pre-action viewport for the oracle.
	screenshot, err := s.browser.Screenshot(stepCtx)
	if err != nil {
		return s.stepFailureLocked(stepCtx, step, "capture", err)
	}
	currentURL, err := s.browser.CurrentURL(stepCtx)
	if err != nil {
		return s.stepFailureLocked(stepCtx, step, "capture", err)
	}

	raw, err := s.oracle.Decide(stepCtx, schemas.DecisionRequest{
		Objective:  s.Objective,
		CurrentURL: currentURL,
		Screenshot: screenshot,
		History:    s.historyLocked(stepCtx),
	})
	if err != nil {
		return s.stepFailureLocked(stepCtx, step, "decide", err)
	}

	cmd, err := decoder.Decode(raw, currentURL)
	if err != nil {
		return s.stepFailureLocked(stepCtx, step, "decode", err)
	}
	log.Info("Action decided", zap.String("action", cmd.String()))

	if cmd.Kind == schemas.ActionFinish {
		return s.completeLocked(stepCtx, step, cmd), nil
	}

	if err := s.execute(stepCtx, cmd); err != nil {
		return s.stepFailureLocked(stepCtx, step, string(cmd.Kind), err)
	}

	s.consecutiveFailures = 0
	s.appendLogLocked(schemas.LogEntry{
		Step:      step,
		Timestamp: time.Now(),
		Action:    cmd.String(),
		Reasoning: cmd.Rationale,
	})
	s.observePageLocked(stepCtx)
	s.lastAction = string(cmd.Kind)

	return s.resultLocked(), s.stepAborted(ctx)
}

// execute dispatches a decoded command to the browser.
func (s *Session) execute(ctx context.Context, cmd schemas.ActionCommand) error {
	switch cmd.Kind {
	case schemas.ActionNavigate:
		return s.browser.Navigate(ctx, cmd.URL)
	case schemas.ActionClick:
		return s.browser.Click(ctx, cmd.Target)
	case schemas.ActionType:
		return s.browser.Type(ctx, cmd.Target, cmd.Text)
	case schemas.ActionScroll:
		return s.browser.Scroll(ctx, cmd.Direction, cmd.Amount)
	default:
		return &schemas.ActionExecutionError{Action: string(cmd.Kind), Reason: "unsupported action kind"}
	}
}

// completeLocked finishes the mission: extract a final digest, record the
// summary, and transition to completed.
func (s *Session) completeLocked(ctx context.Context, step int, cmd schemas.ActionCommand) schemas.StepResult {
	if html, err := s.browser.PageHTML(ctx); err == nil {
		if digest := s.extractor.Extract(html, s.lastURL); digest != "" {
			s.extracted = digest
		}
	}
	if url, err := s.browser.CurrentURL(ctx); err == nil {
		s.lastURL = url
	}

	summary := cmd.Summary
	if summary == "" {
		s.logger.Warn("Finish action carried no summary, falling back to the page digest")
		summary = s.extracted
	}
	s.finalSummary = summary
	s.status = schemas.StatusCompleted
	s.lastAction = string(schemas.ActionFinish)
	s.appendLogLocked(schemas.LogEntry{
		Step:      step,
		Timestamp: time.Now(),
		Action:    cmd.String(),
		Reasoning: cmd.Rationale,
	})
	s.logger.Info("Mission completed", zap.Int("steps", step))
	return s.resultLocked()
}

// stepFailureLocked routes one failed step through the error taxonomy.
func (s *Session) stepFailureLocked(ctx context.Context, step int, phase string, err error) (schemas.StepResult, error) {
	if s.destroyed.Load() {
		return schemas.StepResult{}, schemas.ErrSessionNotFound
	}
	if abortErr := s.stepAborted(ctx); abortErr != nil {
		return schemas.StepResult{}, abortErr
	}

	entry := schemas.LogEntry{
		Step:      step,
		Timestamp: time.Now(),
		Action:    phase,
		Reasoning: fmt.Sprintf("%s failed", phase),
		Error:     err.Error(),
	}

	var fatal *schemas.BrowserFatalError
	if errors.As(err, &fatal) {
		s.failLocked(fmt.Sprintf("unrecoverable %s failure", phase), entry)
		return s.resultLocked(), nil
	}

	s.consecutiveFailures++
	s.logger.Warn("Recoverable step failure",
		zap.Int("step", step),
		zap.String("phase", phase),
		zap.Int("consecutive_failures", s.consecutiveFailures),
		zap.Error(err),
	)
	s.appendLogLocked(entry)

	if budget := s.failureBudget(); s.consecutiveFailures >= budget {
		s.failLocked(fmt.Sprintf("failure budget exhausted after %d consecutive failures", s.consecutiveFailures), schemas.LogEntry{})
	}
	return s.resultLocked(), nil
}

// failLocked transitions to failed exactly once and releases the browser;
// a failed mission must not keep a live browser process around.
func (s *Session) failLocked(reason string, entry schemas.LogEntry) {
	if s.status.Terminal() {
		return
	}
	s.status = schemas.StatusFailed
	if entry.Step != 0 {
		s.appendLogLocked(entry)
	}
	s.appendLogLocked(schemas.LogEntry{
		Step:      s.stepCount,
		Timestamp: time.Now(),
		Action:    "abort",
		Reasoning: reason,
	})
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("Browser teardown after failure reported an error", zap.Error(err))
	}
	s.logger.Error("Mission failed", zap.String("reason", reason))
}

func (s *Session) failureBudget() int {
	if s.cfg.MaxConsecutiveFailures > 0 {
		return s.cfg.MaxConsecutiveFailures
	}
	return 5
}

// observePageLocked refreshes the post-action view: screenshot, URL, and an
// opportunistic content digest. All failures here are advisory.
func (s *Session) observePageLocked(ctx context.Context) {
	if shot, err := s.browser.Screenshot(ctx); err == nil {
		s.lastScreenshot = shot
	}
	if url, err := s.browser.CurrentURL(ctx); err == nil {
		s.lastURL = url
	}
	if html, err := s.browser.PageHTML(ctx); err == nil {
		if digest := s.extractor.Extract(html, s.lastURL); digest != "" {
			s.extracted = digest
		}
	}
}

// historyLocked renders the step history for a decision request: a condensed
// account of older steps followed by the most recent entries verbatim.
func (s *Session) historyLocked(ctx context.Context) []string {
	entries := make([]string, len(s.log))
	for i, e := range s.log {
		entries[i] = e.Render()
	}
	if len(entries) <= historyLookback {
		return entries
	}

	cut := len(entries) - historyLookback
	if len(entries)-s.condensedThrough > condenseSlack {
		older := entries[:cut]
		if s.condensed != "" {
			older = append([]string{s.condensed}, entries[s.condensedThrough:cut]...)
		}
		if summary, err := s.oracle.Condense(ctx, s.Objective, older); err == nil && summary != "" {
			s.condensed = "Earlier steps, condensed: " + summary
			s.condensedThrough = cut
		} else if err != nil {
			s.logger.Debug("History condensation failed, truncating instead", zap.Error(err))
		}
	}

	recent := entries[s.condensedThrough:]
	if s.condensed != "" {
		return append([]string{s.condensed}, recent...)
	}
	// No condensed account yet; plain truncation.
	return entries[cut:]
}

func (s *Session) appendLogLocked(entry schemas.LogEntry) {
	s.log = append(s.log, entry)
}

func (s *Session) resultLocked() schemas.StepResult {
	res := schemas.StepResult{
		Screenshot:       slices.Clone(s.lastScreenshot),
		Log:              slices.Clone(s.log),
		Status:           s.status,
		ExtractedContent: s.extracted,
		Action:           s.lastAction,
		URL:              s.lastURL,
	}
	if s.status == schemas.StatusCompleted {
		res.FinalURL = s.lastURL
		if s.finalSummary != "" {
			res.ExtractedContent = s.finalSummary
		}
	}
	return res
}

// stepAborted distinguishes a caller-cancelled step from an in-session error.
func (s *Session) stepAborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Session) setCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancelStep = cancel
	s.cancelMu.Unlock()
}

// Destroy tears the session down. Idempotent and safe to call concurrently
// with an in-flight step: the step's context is cancelled and the browser is
// closed without waiting for the step lock.
func (s *Session) Destroy() error {
	if s.destroyed.Swap(true) {
		return nil
	}

	s.cancelMu.Lock()
	if s.cancelStep != nil {
		s.cancelStep()
	}
	s.cancelMu.Unlock()

	err := s.browser.Close()

	s.mu.Lock()
	if !s.status.Terminal() {
		s.status = schemas.StatusFailed
	}
	s.mu.Unlock()

	s.logger.Info("Session destroyed")
	return err
}
