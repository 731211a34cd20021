package mercari

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"mercari-scraper/config"
)

// Session owns one headless browser and the single page used for a crawl.
// It is acquired per request and must be closed on every exit path.
type Session struct {
	pageCtx     context.Context
	cancelPage  context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewSession launches a browser configured with the user-agent, viewport,
// locale and timezone from cfg, and installs the consent cookie before any
// navigation. The returned page context is ready to navigate. Failure here
// is terminal for the whole request; nothing is retried.
func NewSession(parent context.Context, cfg *config.Config) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if bin := findChromeBinary(cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)

	// Suppress chromedp log noise
	pageCtx, cancelPage := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	s := &Session{
		pageCtx:     pageCtx,
		cancelPage:  cancelPage,
		cancelAlloc: cancelAlloc,
	}

	err := chromedp.Run(pageCtx,
		network.Enable(),
		emulation.SetTimezoneOverride(cfg.TimezoneID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie(cfg.CookieName, cfg.CookieValue).
				WithDomain(cfg.CookieDomain).
				WithPath(cfg.CookiePath).
				Do(ctx)
		}),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("mercari: session bootstrap: %w", err)
	}

	return s, nil
}

// Page returns the browser-tab context used for all navigation and
// extraction within this session.
func (s *Session) Page() context.Context {
	return s.pageCtx
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancelPage()
	s.cancelAlloc()
}

// findChromeBinary locates the Chrome/Chromium binary, preferring an
// explicit override.
func findChromeBinary(override string) string {
	if override != "" {
		return override
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
