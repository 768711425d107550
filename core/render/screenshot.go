package render

import (
	"context"
	"fmt"
	"os"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// Screenshotter captures a page as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context, url string) ([]byte, error)
}

// PNGRenderer renders a thread to HTML and screenshots it.
type PNGRenderer struct {
	html    *HTMLRenderer
	browser Screenshotter
}

// NewPNGRenderer creates a PNGRenderer that shoots pages with browser.
func NewPNGRenderer(browser Screenshotter) *PNGRenderer {
	return &PNGRenderer{html: NewHTMLRenderer(), browser: browser}
}

// Render writes the thread's page to a temporary file and screenshots it.
func (r *PNGRenderer) Render(ctx context.Context, thread core.Thread) ([]byte, error) {
	page, err := r.html.Render(ctx, thread)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "trailpipe-*.html")
	if err != nil {
		return nil, fmt.Errorf("creating temp page: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(page); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing temp page: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing temp page: %w", err)
	}

	return r.browser.Screenshot(ctx, "file://"+f.Name())
}

// Extension returns the file extension for PNG output.
func (r *PNGRenderer) Extension() string {
	return ".png"
}
