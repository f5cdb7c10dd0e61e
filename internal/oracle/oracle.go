// File: internal/oracle/oracle.go

// Package oracle turns a mission's visual state into a raw decision payload by
// consulting an external reasoning service. It owns prompt construction, model
// routing, rate limiting and the per-request deadline; decoding the payload
// into an executable command belongs to the decoder package.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/config"
)

// systemPrompt frames every decision request. The action vocabulary and JSON
// shape here must stay in sync with what the decoder accepts.
const systemPrompt = `You are an autonomous web-surfing agent. You are given a mission objective, a screenshot of the current browser viewport, the current URL, and a short history of your previous steps.

Decide the single next browser action that makes the most progress toward the objective. Respond with ONLY a JSON object, no prose before or after, using exactly one of these shapes:

{"action": "navigate", "url": "<absolute or site-relative URL>", "reasoning": "<why>"}
{"action": "click", "selector": "<CSS selector or visible text of the element>", "reasoning": "<why>"}
{"action": "type", "selector": "<CSS selector or field label>", "text": "<text to enter>", "reasoning": "<why>"}
{"action": "scroll", "direction": "up|down|left|right", "amount": <pixels, optional>, "reasoning": "<why>"}
{"action": "finish", "summary": "<what was accomplished and the answer to the objective>", "reasoning": "<why>"}

Rules:
- Issue "finish" as soon as the objective is satisfied or clearly impossible; do not wander.
- Dismiss cookie banners, consent dialogs and newsletter overlays when they block the content.
- If a CAPTCHA or security challenge blocks progress and cannot be bypassed by navigating elsewhere, finish with a summary explaining the blockage.
- Typing into a field submits it with Enter; do not click a submit button after typing a search query.
- Prefer stable CSS selectors from the page; fall back to the element's visible text.
- Never invent URLs; navigate only to addresses you can justify from the page or the objective.`

// condensePrompt compresses an overlong step history into a short running
// account so decision prompts stay bounded.
const condensePrompt = `Condense the following step history of a web-surfing mission into at most three sentences. Keep concrete facts found so far, pages already visited, and approaches that failed. Objective: %s

History:
%s`

// Service is the decision oracle used by mission sessions.
type Service struct {
	router *Router
	cfg    config.OracleConfig
	logger *zap.Logger
}

func NewService(router *Router, cfg config.OracleConfig, logger *zap.Logger) *Service {
	return &Service{
		router: router,
		cfg:    cfg,
		logger: logger.Named("oracle"),
	}
}

// Decide submits the current visual state and returns the model's raw
// response payload. The call is bounded by the configured oracle timeout;
// hitting it yields schemas.ErrOracleTimeout so the session can count it
// against the failure budget instead of aborting.
func (s *Service) Decide(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.router.Generate(callCtx, GenerationRequest{
		SystemPrompt:    systemPrompt,
		UserPrompt:      buildUserPrompt(req),
		ImagePNG:        req.Screenshot,
		Tier:            TierPowerful,
		ForceJSONFormat: true,
		Temperature:     s.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("Oracle request exceeded deadline", zap.Duration("timeout", timeout))
			return "", schemas.ErrOracleTimeout
		}
		return "", fmt.Errorf("oracle decision failed: %w", err)
	}

	s.logger.Debug("Oracle decision received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_length", len(raw)),
	)
	return raw, nil
}

// Condense shrinks a step history using the fast tier. On any failure the
// caller falls back to plain truncation, so errors here are advisory.
func (s *Service) Condense(ctx context.Context, objective string, entries []string) (string, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.router.Generate(callCtx, GenerationRequest{
		UserPrompt:  fmt.Sprintf(condensePrompt, objective, strings.Join(entries, "\n")),
		Tier:        TierFast,
		Temperature: s.cfg.Temperature,
	})
}

func buildUserPrompt(req schemas.DecisionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", req.Objective)
	fmt.Fprintf(&b, "Current URL: %s\n", req.CurrentURL)

	if len(req.History) == 0 {
		b.WriteString("History: none, this is the first step.\n")
	} else {
		b.WriteString("History:\n")
		for _, entry := range req.History {
			fmt.Fprintf(&b, "%s\n", entry)
		}
	}
	b.WriteString("\nThe attached image is the current viewport. Decide the next action.")
	return b.String()
}
