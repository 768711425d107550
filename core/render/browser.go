package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Viewport of a render. Screenshots capture the full page height.
const (
	ViewportWidth  = 560
	ViewportHeight = 300
)

// ErrBrowserClosed is returned by Screenshot after Close.
var ErrBrowserClosed = errors.New("browser closed")

// browserFlags are the Chrome switches set on top of chromedp's defaults.
// Renders are local files that only load remote media, so file access
// between local pages stays off.
func browserFlags(headless bool) map[string]any {
	flags := map[string]any{
		"headless":                 headless,
		"hide-scrollbars":          true,
		"disable-extensions":       true,
		"disable-default-apps":     true,
		"no-first-run":             true,
		"no-default-browser-check": true,
	}
	if headless {
		flags["disable-gpu"] = true
	}
	return flags
}

// BrowserOptions returns chromedp allocator options for rendering pages.
func BrowserOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range browserFlags(headless) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// Browser is a headless Chrome started on first use and shared by all
// renders. Each screenshot gets its own tab.
type Browser struct {
	headless bool

	mu            sync.Mutex
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	closed        bool
}

// NewBrowser returns a Browser. Chrome is not launched until the first
// Screenshot.
func NewBrowser(headless bool) *Browser {
	return &Browser{headless: headless}
}

// acquire returns the browser context, launching Chrome if needed.
func (b *Browser) acquire() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrowserClosed
	}
	if b.ctx != nil {
		return b.ctx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), BrowserOptions(b.headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser and keeps its first tab open.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	log.Debug().Bool("headless", b.headless).Msg("Browser started")

	b.ctx = browserCtx
	b.allocCancel = allocCancel
	b.browserCancel = browserCancel
	return b.ctx, nil
}

// Screenshot loads url in a new tab and returns a full-page PNG with a
// transparent background. The tab is closed when ctx is done or the
// screenshot completes.
func (b *Browser) Screenshot(ctx context.Context, url string) ([]byte, error) {
	browserCtx, err := b.acquire()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(ViewportWidth, ViewportHeight),
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("screenshot %s: %w", url, ctxErr)
		}
		return nil, fmt.Errorf("screenshot %s: %w", url, err)
	}
	return buf, nil
}

// Close shuts Chrome down. Safe to call when the browser never started.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.ctx == nil {
		return
	}
	b.browserCancel()
	b.allocCancel()
	b.ctx = nil
	log.Debug().Msg("Browser closed")
}
