package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const renderSettle = 750 * time.Millisecond

// ChromeRenderer renders script-heavy pages in headless Chrome and returns
// the resulting markup. A semaphore bounds concurrent browser sessions;
// each render gets its own browser so a crashed page cannot poison later
// renders.
type ChromeRenderer struct {
	sem     chan struct{}
	timeout time.Duration
	ua      string
}

// NewChromeRenderer creates a renderer allowing at most sessions concurrent
// browsers.
func NewChromeRenderer(sessions int, ua string) *ChromeRenderer {
	if sessions < 1 {
		sessions = 1
	}
	return &ChromeRenderer{
		sem:     make(chan struct{}, sessions),
		timeout: 45 * time.Second,
		ua:      ua,
	}
}

// Render navigates to url, waits briefly for scripts to settle, and returns
// the document's outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.ua),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}
