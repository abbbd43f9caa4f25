// Package browser drives a Chrome instance for portal automation.
//
// Each posting run gets its own Chrome process with a fixed desktop
// profile and the usual automation markers suppressed. The session
// exposes page-level primitives; everything above it (what to click, in
// what order) lives in the engine.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Script injected before any page script runs. The portal's challenge
// heuristics check navigator.webdriver.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Session owns one Chrome process and one tab.
type Session struct {
	cfg         Config
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Open launches Chrome and prepares a blank tab.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	if path := strings.TrimSpace(cfg.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	if dir := strings.TrimSpace(cfg.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Session{
		cfg:         cfg,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// Close terminates the tab and the Chrome process. Safe to call more
// than once.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}

// run executes actions against the tab with the per-action timeout,
// honoring the caller's ctx for cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.cfg.SlowMo > 0 {
		select {
		case <-time.After(s.cfg.SlowMo):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	runCtx, cancel := context.WithTimeout(s.tabCtx, s.cfg.actionTimeout())
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	return chromedp.Run(runCtx, actions...)
}

// settle waits for the document to be ready plus a short grace period
// for the portal's deferred scripts.
func (s *Session) settle() chromedp.Action {
	return chromedp.Tasks{
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.settleDelay()),
	}
}

// Navigate loads a URL and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), s.settle())
}

// Click clicks the first match without waiting for navigation.
func (s *Session) Click(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

// ClickNavigate clicks and waits for the resulting page to settle.
func (s *Session) ClickNavigate(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Click(sel, chromedp.ByQuery), s.settle())
}

// Fill replaces the value of an input or textarea.
func (s *Session) Fill(ctx context.Context, sel, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, value, chromedp.ByQuery),
	)
}

// SelectByLabel picks the option whose visible label matches exactly.
func (s *Session) SelectByLabel(ctx context.Context, sel, label string) error {
	expr := fmt.Sprintf(`(() => {
		const select = document.querySelector(%q);
		if (!select) return "no such select";
		for (const opt of select.options) {
			if (opt.label.trim() === %q || opt.textContent.trim() === %q) {
				select.value = opt.value;
				select.dispatchEvent(new Event('change', {bubbles: true}));
				return "";
			}
		}
		return "no option with that label";
	})()`, sel, label, label)

	var failure string
	if err := s.run(ctx, chromedp.Evaluate(expr, &failure)); err != nil {
		return err
	}
	if failure != "" {
		return fmt.Errorf("select %s option %q: %s", sel, label, failure)
	}
	return nil
}

// SetFiles assigns local file paths to a file input.
func (s *Session) SetFiles(ctx context.Context, sel string, paths []string) error {
	return s.run(ctx, chromedp.SetUploadFiles(sel, paths, chromedp.ByQuery))
}

// WaitVisible blocks until the first match is visible.
func (s *Session) WaitVisible(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// WaitHidden blocks until no match is visible.
func (s *Session) WaitHidden(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.WaitNotVisible(sel, chromedp.ByQuery))
}

// Count returns how many elements match.
func (s *Session) Count(ctx context.Context, sel string) (int, error) {
	var n int
	err := s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%q).length`, sel), &n))
	return n, err
}

// Texts returns the trimmed text content of every match, in DOM order.
func (s *Session) Texts(ctx context.Context, sel string) ([]string, error) {
	var texts []string
	err := s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`Array.from(document.querySelectorAll(%q), el => el.textContent.trim())`, sel),
		&texts))
	return texts, err
}

// ContainsText reports whether the page's visible text contains text.
func (s *Session) ContainsText(ctx context.Context, text string) (bool, error) {
	var found bool
	err := s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.body.innerText.includes(%q)`, text), &found))
	return found, err
}

// RemoveAll deletes every match from the DOM.
func (s *Session) RemoveAll(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelectorAll(%q).forEach(el => el.remove())`, sel), nil))
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}
