// File: api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by registry lookups for unknown or already
// deleted session identifiers. Client-facing, never session-fatal.
var ErrSessionNotFound = errors.New("session not found")

// ErrOracleTimeout marks a decision oracle call that exceeded its time budget.
// Treated as a decode failure by the mission loop: recoverable, counted
// against the failure budget.
var ErrOracleTimeout = errors.New("oracle request timed out")

// InitializationError wraps a failure to start the browser during session
// creation. Fatal: the session is never registered.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("session initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// DecodeError reports an oracle payload that could not be decoded into an
// ActionCommand. Raw carries a truncated copy of the offending payload for
// operator diagnosis.
type DecodeError struct {
	Reason string
	Raw    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode decision payload: %s", e.Reason)
}

// ActionExecutionError reports a recoverable browser operation failure
// (timeout, element not found, navigation error). The mission logs it and
// continues.
type ActionExecutionError struct {
	Action string
	Reason string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %q failed: %s", e.Action, e.Reason)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// BrowserFatalError signals that the browser process itself died. Unrecoverable:
// the session transitions to failed.
type BrowserFatalError struct {
	Err error
}

func (e *BrowserFatalError) Error() string {
	return fmt.Sprintf("browser process failure: %v", e.Err)
}

func (e *BrowserFatalError) Unwrap() error { return e.Err }

// Recoverable classifies an error against the mission taxonomy. Recoverable
// errors are logged and counted toward the consecutive-failure budget; anything
// else aborts the mission.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	var de *DecodeError
	var ae *ActionExecutionError
	switch {
	case errors.As(err, &de), errors.As(err, &ae):
		return true
	case errors.Is(err, ErrOracleTimeout):
		return true
	}
	return false
}
