// File: internal/mission/interfaces.go
package mission

import (
	"context"

	"github.com/reasonos/websurfer/api/schemas"
)

// Browser is the surface a session needs from the browser controller. All
// operations block; the session serializes calls per browser.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, target string) error
	Type(ctx context.Context, target, text string) error
	Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error
	Screenshot(ctx context.Context) ([]byte, error)
	PageHTML(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Healthy() bool
	Close() error
}

// Oracle produces raw decision payloads from mission state. Condense is
// advisory; sessions fall back to truncation when it fails.
type Oracle interface {
	Decide(ctx context.Context, req schemas.DecisionRequest) (string, error)
	Condense(ctx context.Context, objective string, entries []string) (string, error)
}

// Extractor distills page HTML into a text digest. Never fails; pages with no
// recognizable content yield an empty digest.
type Extractor interface {
	Extract(html, baseURL string) string
}

// BrowserFactory launches a fresh browser for a new session. The context
// bounds startup, not the browser's lifetime.
type BrowserFactory func(ctx context.Context) (Browser, error)
