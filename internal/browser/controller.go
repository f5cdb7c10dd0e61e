// File: internal/browser/controller.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/browser/stealth"
	"github.com/reasonos/websurfer/internal/config"
)

// Controller owns exactly one browser process and one tab for the lifetime of
// a mission session. All operations are blocking with respect to the browser;
// callers serialize access per session.
type Controller struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	persona stealth.Persona

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

const (
	startupTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

// New launches a dedicated browser process with the stealth persona applied
// and the tab parked on about:blank. The returned controller must be released
// with Close on every path, including failed session creation.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Controller, error) {
	persona := stealth.RandomPersona(rand.New(rand.NewSource(time.Now().UnixNano())))
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		persona.Width, persona.Height = cfg.WindowWidth, cfg.WindowHeight
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(cfg, persona)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	c := &Controller{
		logger:      logger.Named("browser"),
		cfg:         cfg,
		persona:     persona,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}

	startCtx, cancel := context.WithTimeout(tabCtx, startupTimeout)
	defer cancel()

	tasks := chromedp.Tasks{}
	tasks = append(tasks, stealth.Apply(persona, c.logger)...)
	tasks = append(tasks, chromedp.Navigate("about:blank"))

	if err := chromedp.Run(startCtx, tasks); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	c.logger.Info("Browser started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", persona.Width),
		zap.Int("viewport_height", persona.Height),
	)
	return c, nil
}

// execOptions builds the Chrome launch flags: stability defaults for
// containers plus the anti-automation posture.
func execOptions(cfg config.BrowserConfig, persona stealth.Persona) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(persona.Width, persona.Height),
		chromedp.UserAgent(persona.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(arg, "=")
		key = strings.TrimPrefix(key, "--")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Navigate loads a URL and waits for the document body to be ready.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("Navigating", zap.String("url", url))

	timeout := c.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	err := c.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return c.classify("navigate", fmt.Sprintf("navigation to %q failed", url), err)
	}
	return nil
}

// Click resolves the target descriptor and clicks the first matching element
// in document order. CSS selectors are tried literally first; otherwise the
// first visible, interactable element whose text matches is used, exact
// matches preferred over partial ones.
func (c *Controller) Click(ctx context.Context, target string) error {
	c.logger.Debug("Clicking", zap.String("target", target))

	var res json.RawMessage
	err := c.run(ctx, c.actionTimeout(),
		c.evaluate(fmt.Sprintf(clickScript, jsString(target)), &res),
	)
	if err != nil {
		return c.classify("click", fmt.Sprintf("click on %q failed", target), err)
	}
	if string(res) != "true" {
		return &schemas.ActionExecutionError{
			Action: "click",
			Reason: fmt.Sprintf("no visible element matches %q", target),
		}
	}
	return nil
}

// Type fills the target field with text and presses Enter, matching the
// common search-box flow.
func (c *Controller) Type(ctx context.Context, target, text string) error {
	c.logger.Debug("Typing", zap.String("target", target), zap.Int("text_length", len(text)))

	var res json.RawMessage
	err := c.run(ctx, c.actionTimeout(),
		c.evaluate(fmt.Sprintf(fillScript, jsString(target), jsString(text)), &res),
	)
	if err != nil {
		return c.classify("type", fmt.Sprintf("typing into %q failed", target), err)
	}
	if string(res) != "true" {
		return &schemas.ActionExecutionError{
			Action: "type",
			Reason: fmt.Sprintf("no input field matches %q", target),
		}
	}

	if err := c.run(ctx, c.actionTimeout(), chromedp.KeyEvent(kb.Enter)); err != nil {
		return c.classify("type", "submitting input with Enter failed", err)
	}
	return nil
}

// Scroll moves the viewport. amount is in pixels; 0 means one viewport height
// (or width for horizontal directions).
func (c *Controller) Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error {
	var dx, dy int
	switch direction {
	case schemas.ScrollUp:
		dy = -c.scrollAmount(amount, c.persona.Height)
	case schemas.ScrollDown:
		dy = c.scrollAmount(amount, c.persona.Height)
	case schemas.ScrollLeft:
		dx = -c.scrollAmount(amount, c.persona.Width)
	case schemas.ScrollRight:
		dx = c.scrollAmount(amount, c.persona.Width)
	default:
		return &schemas.ActionExecutionError{Action: "scroll", Reason: fmt.Sprintf("invalid direction %q", direction)}
	}

	script := fmt.Sprintf(`window.scrollBy({left: %d, top: %d, behavior: 'instant'});`, dx, dy)
	if err := c.run(ctx, c.actionTimeout(), chromedp.Evaluate(script, nil)); err != nil {
		return c.classify("scroll", "scroll failed", err)
	}
	return nil
}

func (c *Controller) scrollAmount(amount, viewport int) int {
	if amount > 0 {
		return amount
	}
	return viewport
}

// Screenshot captures the current viewport as PNG bytes.
func (c *Controller) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, c.actionTimeout(), chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, c.classify("screenshot", "screenshot capture failed", err)
	}
	return buf, nil
}

// PageHTML returns the serialized DOM of the current page.
func (c *Controller) PageHTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, c.actionTimeout(), chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", c.classify("read_page", "reading page DOM failed", err)
	}
	return html, nil
}

// CurrentURL returns the tab's current location.
func (c *Controller) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, c.actionTimeout(), chromedp.Location(&url)); err != nil {
		return "", c.classify("current_url", "reading location failed", err)
	}
	return url, nil
}

// Healthy reports whether the browser process is still reachable.
func (c *Controller) Healthy() bool {
	return c.tabCtx.Err() == nil
}

// Close tears down the tab and the browser process. Idempotent and safe to
// call concurrently with in-flight operations; those operations fail once
// their contexts are cancelled.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Debug("Closing browser")

		// chromedp.Cancel waits for the process to exit; bound that wait.
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(c.tabCtx) }()
		select {
		case err := <-done:
			if err != nil && err != context.Canceled {
				c.closeErr = err
			}
		case <-time.After(shutdownTimeout):
			c.logger.Warn("Browser shutdown timed out, cancelling forcefully")
		}

		c.tabCancel()
		c.allocCancel()
	})
	return c.closeErr
}

// run executes chromedp actions against the tab, respecting both the caller's
// context and the controller's lifetime, under an operation timeout.
func (c *Controller) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.tabCtx.Err() != nil {
		return c.tabCtx.Err()
	}

	opCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()

	// Propagate caller cancellation (e.g. session destroy racing a step).
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (c *Controller) actionTimeout() time.Duration {
	if c.cfg.ActionTimeout > 0 {
		return c.cfg.ActionTimeout
	}
	return 10 * time.Second
}

// classify maps a raw chromedp failure onto the mission error taxonomy: a dead
// browser process is fatal, anything else is a recoverable execution error.
func (c *Controller) classify(action, reason string, err error) error {
	if c.tabCtx.Err() != nil {
		return &schemas.BrowserFatalError{Err: fmt.Errorf("%s: %w", reason, err)}
	}
	return &schemas.ActionExecutionError{Action: action, Reason: reason, Err: err}
}

// evaluate wraps chromedp.Evaluate so promises resolve and JS exceptions stay
// silent; matching scripts return their result by value.
func (c *Controller) evaluate(script string, res *json.RawMessage) chromedp.Action {
	return chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	})
}

// jsString safely encodes a Go string as a JS string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
