package fetcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"iphone-price-catalog/utils"
)

const (
	titleAttempts = 5
	titleInterval = 150 * time.Millisecond
)

// BrowserOptions configures the headless Chrome fetcher.
type BrowserOptions struct {
	ChromeBin string
	UserAgent string
	Timeout   time.Duration
}

// Browser renders pages in a single headless Chrome tab that is reused for
// every fetch.
type Browser struct {
	logger  *utils.Logger
	timeout time.Duration

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewBrowser launches Chrome and opens the shared tab.
func NewBrowser(opts BrowserOptions, logger *utils.Logger) (*Browser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	logger.Info("[fetcher] Using browser binary: %q", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "ja-JP"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Browser{
		logger:      logger,
		timeout:     timeout,
		tab:         tab,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Fetch navigates the shared tab to req.URL and returns the rendered page.
func (b *Browser) Fetch(ctx context.Context, req Request) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(b.tab, b.timeout)
	defer cancel()

	actions := []chromedp.Action{chromedp.Navigate(req.URL)}
	if req.Settle > 0 {
		actions = append(actions, chromedp.Sleep(req.Settle))
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, req.URL, err)
	}

	var title string
	if req.TitleReady != nil {
		for i := 0; i < titleAttempts; i++ {
			if err := chromedp.Run(runCtx, chromedp.Title(&title)); err == nil && req.TitleReady(title) {
				break
			}
			time.Sleep(titleInterval)
		}
	}

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrNavigation, req.URL, err)
	}

	b.logger.Debug("[fetcher] %s (%d bytes, title %q)", req.URL, len(html), title)
	return NewDocument(req.URL, title, html)
}

// Close shuts down the tab and the browser process.
func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// FindChromeBinary locates a Chrome/Chromium binary, returning "" to let
// chromedp use its own lookup.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
