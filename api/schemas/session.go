// File: api/schemas/session.go
package schemas

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a mission session.
type SessionStatus string

const (
	StatusInitializing SessionStatus = "initializing"
	StatusActive       SessionStatus = "active"
	StatusCompleted    SessionStatus = "completed"
	StatusFailed       SessionStatus = "failed"
)

// Terminal reports whether the status admits no further steps.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LogEntry is one append-only record in a session's mission log.
type LogEntry struct {
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Reasoning string    `json:"reasoning"`
	Error     string    `json:"error,omitempty"`
}

// Render formats the entry the way the dashboard displays it.
func (e LogEntry) Render() string {
	if e.Error != "" {
		return fmt.Sprintf("[Step %d] %s (error: %s)", e.Step, e.Reasoning, e.Error)
	}
	return fmt.Sprintf("[Step %d] %s", e.Step, e.Reasoning)
}

// StepResult is the immutable snapshot returned by one session step. It copies
// session state rather than aliasing it; callers may retain it freely.
type StepResult struct {
	// Screenshot is the post-action capture, PNG bytes.
	Screenshot []byte
	// Log is the full mission log up to and including this step.
	Log []LogEntry
	// Status is active or completed (failed sessions surface their status too).
	Status SessionStatus
	// ExtractedContent is the latest best-effort page digest, empty when no
	// extraction has produced anything yet.
	ExtractedContent string
	// FinalURL is set only when Status is completed.
	FinalURL string
	// Action is the short form of the action this step executed.
	Action string
	// URL is the page URL observed when the decision was made.
	URL string
}

// DecisionRequest is the contract with the decision oracle: everything the
// external reasoning service needs to pick the next action.
type DecisionRequest struct {
	Objective  string
	CurrentURL string
	// Screenshot is the current viewport capture, PNG bytes. The oracle
	// transport is responsible for encoding.
	Screenshot []byte
	// History is a condensed, oldest-first summary of prior steps.
	History []string
}
