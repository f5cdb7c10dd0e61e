// File: api/schemas/actions.go
package schemas

import "strings"

// ActionKind enumerates the closed set of browser operations the oracle may
// request. The vocabulary is fixed; anything else is a decode failure, never a
// default action.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionScroll   ActionKind = "scroll"
	ActionFinish   ActionKind = "finish"
)

// ParseActionKind normalizes a raw action tag. The second return value reports
// whether the tag names a recognized kind.
func ParseActionKind(raw string) (ActionKind, bool) {
	switch ActionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionNavigate:
		return ActionNavigate, true
	case ActionClick:
		return ActionClick, true
	case ActionType:
		return ActionType, true
	case ActionScroll:
		return ActionScroll, true
	case ActionFinish:
		return ActionFinish, true
	}
	return "", false
}

// ScrollDirection is the axis and sign of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// ParseScrollDirection validates a raw scroll direction.
func ParseScrollDirection(raw string) (ScrollDirection, bool) {
	switch ScrollDirection(strings.ToLower(strings.TrimSpace(raw))) {
	case ScrollUp:
		return ScrollUp, true
	case ScrollDown:
		return ScrollDown, true
	case ScrollLeft:
		return ScrollLeft, true
	case ScrollRight:
		return ScrollRight, true
	}
	return "", false
}

// ActionCommand is the decoded, validated form of one oracle decision. Exactly
// one variant is active, selected by Kind; only the fields belonging to that
// variant are populated.
type ActionCommand struct {
	Kind ActionKind

	// Navigate
	URL string

	// Click / Type. Target is a CSS selector or visible element text.
	Target string
	Text   string

	// Scroll. Amount is in pixels; 0 means one viewport height (or width for
	// horizontal directions), resolved by the browser controller.
	Direction ScrollDirection
	Amount    int

	// Finish
	Summary string

	// Rationale is the oracle's free-text reasoning. Carried for the session
	// log, never interpreted.
	Rationale string
}

// String renders a short human-readable form for log entries.
func (a ActionCommand) String() string {
	switch a.Kind {
	case ActionNavigate:
		return "navigate " + a.URL
	case ActionClick:
		return "click " + a.Target
	case ActionType:
		return "type into " + a.Target
	case ActionScroll:
		return "scroll " + string(a.Direction)
	case ActionFinish:
		return "finish"
	}
	return "unknown"
}
