// File: internal/mission/mocks_test.go
package mission

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/reasonos/websurfer/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBrowser records calls and lets individual operations be overridden.
type fakeBrowser struct {
	mu      sync.Mutex
	calls   []string
	url     string
	html    string
	closed  bool
	healthy bool

	navigateErr   error
	clickErr      error
	screenshotErr error
	blockUntilCtx bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{url: "about:blank", html: "<html><body></body></html>", healthy: true}
}

func (b *fakeBrowser) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBrowser) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.record("navigate " + url)
	if b.blockUntilCtx {
		<-ctx.Done()
		return &schemas.ActionExecutionError{Action: "navigate", Reason: "cancelled", Err: ctx.Err()}
	}
	if b.navigateErr != nil {
		return b.navigateErr
	}
	b.mu.Lock()
	b.url = url
	b.mu.Unlock()
	return nil
}

func (b *fakeBrowser) Click(ctx context.Context, target string) error {
	b.record("click " + target)
	return b.clickErr
}

func (b *fakeBrowser) Type(ctx context.Context, target, text string) error {
	b.record("type " + target)
	return nil
}

func (b *fakeBrowser) Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error {
	b.record("scroll " + string(direction))
	return nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	b.record("screenshot")
	if b.screenshotErr != nil {
		return nil, b.screenshotErr
	}
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (b *fakeBrowser) PageHTML(ctx context.Context) (string, error) {
	b.record("html")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.html, nil
}

func (b *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url, nil
}

func (b *fakeBrowser) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthy
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.healthy = false
	return nil
}

// fakeOracle returns scripted payloads in order, repeating the last one, and
// captures every decision request for assertions.
type fakeOracle struct {
	mu        sync.Mutex
	responses []string
	decideErr error
	requests  []schemas.DecisionRequest
	condensed string
}

func (o *fakeOracle) Decide(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, req)
	if o.decideErr != nil {
		return "", o.decideErr
	}
	if len(o.responses) == 0 {
		return "", &schemas.DecodeError{Reason: "no scripted response"}
	}
	raw := o.responses[0]
	if len(o.responses) > 1 {
		o.responses = o.responses[1:]
	}
	return raw, nil
}

func (o *fakeOracle) Condense(ctx context.Context, objective string, entries []string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.condensed == "" {
		return "", context.DeadlineExceeded
	}
	return o.condensed, nil
}

func (o *fakeOracle) lastRequest() schemas.DecisionRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[len(o.requests)-1]
}

// fakeExtractor returns a fixed digest for any page.
type fakeExtractor struct{ digest string }

func (e *fakeExtractor) Extract(html, baseURL string) string { return e.digest }
