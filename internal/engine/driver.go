package engine

import "context"

// Driver is the page-level surface the step script runs against. The
// production implementation drives a real browser; tests script a fake.
//
// All selectors are CSS. Every method honors ctx cancellation.
type Driver interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Click clicks the first match without waiting for navigation.
	Click(ctx context.Context, sel string) error

	// ClickNavigate clicks and waits for the resulting page to settle.
	ClickNavigate(ctx context.Context, sel string) error

	// Fill replaces the value of an input or textarea.
	Fill(ctx context.Context, sel, value string) error

	// SelectByLabel picks the option whose visible label matches exactly.
	SelectByLabel(ctx context.Context, sel, label string) error

	// SetFiles assigns local file paths to a file input.
	SetFiles(ctx context.Context, sel string, paths []string) error

	// WaitVisible blocks until the first match is visible.
	WaitVisible(ctx context.Context, sel string) error

	// WaitHidden blocks until no match is visible.
	WaitHidden(ctx context.Context, sel string) error

	// Count returns how many elements match.
	Count(ctx context.Context, sel string) (int, error)

	// Texts returns the trimmed text content of every match, in DOM order.
	Texts(ctx context.Context, sel string) ([]string, error)

	// ContainsText reports whether the page's visible text contains s.
	ContainsText(ctx context.Context, s string) (bool, error)

	// RemoveAll deletes every match from the DOM.
	RemoveAll(ctx context.Context, sel string) error

	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}
