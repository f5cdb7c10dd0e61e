// File: internal/decoder/decoder.go
package decoder

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/reasonos/websurfer/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonBlockRegex extracts a JSON object from a markdown code block. Uses \x60
// for backticks because Go raw strings cannot contain them.
var jsonBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*?})\\s*\x60\x60\x60")

// payload is the wire shape of an oracle decision. Every field is optional at
// the JSON level; validation happens per action kind.
type payload struct {
	Action    string `json:"action"`
	URL       string `json:"url"`
	Selector  string `json:"selector"`
	Text      string `json:"text"`
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
	Summary   string `json:"summary"`
	Reasoning string `json:"reasoning"`
}

const maxRawSnippet = 300

// Decode turns a raw oracle response into exactly one ActionCommand or a
// *schemas.DecodeError. It is pure: no browser access, no side effects, and it
// never panics on arbitrary input. currentURL is the page the session is on,
// used to resolve relative navigation targets; it may be empty.
func Decode(raw, currentURL string) (schemas.ActionCommand, error) {
	jsonText, ok := extractJSON(raw)
	if !ok {
		return schemas.ActionCommand{}, decodeErr(raw, "no JSON object in payload")
	}

	var p payload
	if err := json.UnmarshalFromString(jsonText, &p); err != nil {
		return schemas.ActionCommand{}, decodeErr(raw, fmt.Sprintf("malformed JSON: %v", err))
	}

	if strings.TrimSpace(p.Action) == "" {
		return schemas.ActionCommand{}, decodeErr(raw, "missing action tag")
	}
	kind, ok := schemas.ParseActionKind(p.Action)
	if !ok {
		return schemas.ActionCommand{}, decodeErr(raw, fmt.Sprintf("unrecognized action %q", p.Action))
	}

	cmd := schemas.ActionCommand{Kind: kind, Rationale: strings.TrimSpace(p.Reasoning)}

	switch kind {
	case schemas.ActionNavigate:
		resolved, err := resolveURL(p.URL, currentURL)
		if err != nil {
			return schemas.ActionCommand{}, decodeErr(raw, err.Error())
		}
		cmd.URL = resolved

	case schemas.ActionClick:
		target := strings.TrimSpace(p.Selector)
		if target == "" {
			return schemas.ActionCommand{}, decodeErr(raw, "click requires a target descriptor")
		}
		cmd.Target = target

	case schemas.ActionType:
		target := strings.TrimSpace(p.Selector)
		if target == "" {
			return schemas.ActionCommand{}, decodeErr(raw, "type requires a target descriptor")
		}
		cmd.Target = target
		cmd.Text = p.Text

	case schemas.ActionScroll:
		dir, ok := schemas.ParseScrollDirection(p.Direction)
		if !ok {
			return schemas.ActionCommand{}, decodeErr(raw, fmt.Sprintf("invalid scroll direction %q", p.Direction))
		}
		cmd.Direction = dir
		if p.Amount > 0 {
			cmd.Amount = p.Amount
		}

	case schemas.ActionFinish:
		// An empty summary is permitted; the mission logs a quality warning.
		cmd.Summary = strings.TrimSpace(p.Summary)
		if cmd.Summary == "" {
			cmd.Summary = strings.TrimSpace(p.Reasoning)
		}
	}

	return cmd, nil
}

// extractJSON locates the JSON object in an LLM response, handling markdown
// code fences and conversational padding.
func extractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return strings.TrimSpace(matches[1]), true
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last <= first {
		return "", false
	}
	return raw[first : last+1], true
}

// resolveURL validates a navigation target. Absolute http(s) URLs pass through;
// scheme-less hosts get https; relative paths resolve against the current page
// origin when one is known.
func resolveURL(target, currentURL string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("navigate requires a url")
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("malformed navigation url %q", target)
	}

	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported navigation scheme %q", u.Scheme)
		}
		return u.String(), nil
	}

	// Bare hosts ("reddit.com", "example.com/r/golang") are common oracle
	// shorthand; default them to https.
	if host, _, _ := strings.Cut(target, "/"); strings.Contains(host, ".") && !strings.ContainsAny(host, " \t") {
		return "https://" + target, nil
	}

	// Relative path: only resolvable against a known current page.
	if currentURL == "" {
		return "", fmt.Errorf("relative navigation %q with no current page", target)
	}
	base, err := url.Parse(currentURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("relative navigation %q against unusable base %q", target, currentURL)
	}
	return base.ResolveReference(u).String(), nil
}

func decodeErr(raw, reason string) error {
	snippet := strings.TrimSpace(raw)
	if len(snippet) > maxRawSnippet {
		snippet = snippet[:maxRawSnippet] + "..."
	}
	return &schemas.DecodeError{Reason: reason, Raw: snippet}
}
