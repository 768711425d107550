package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gaurav-prasanna/trailpipe/core"
)

//go:embed templates/render.html
var templateFS embed.FS

var renderTemplate = template.Must(template.ParseFS(templateFS, "templates/render.html"))

// contentPolicy is applied to post markup before it reaches the page. Posts
// are untrusted, and the page is loaded by a real browser for screenshots.
var contentPolicy = newContentPolicy()

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("figure", "figcaption", "div", "p")
	p.AllowAttrs("class").OnElements("figure", "div", "p")
	p.AllowAttrs("data-full-bleed").OnElements("figure")
	return p
}

// SanitizeHTML strips scripts, event handlers and any markup outside the
// content policy.
func SanitizeHTML(s string) string {
	return contentPolicy.Sanitize(s)
}

// entryView is one trail entry as the render template sees it.
type entryView struct {
	BlogName string
	HTML     template.HTML
	Video    *core.Video
	Audio    bool
	ArtURL   string
	Gallery  []string
}

type threadView struct {
	Meta    core.PostMeta
	Entries []entryView
}

// HTMLRenderer lays a thread out as a standalone HTML page. The page is also
// what PNGRenderer screenshots.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render executes the page template for thread.
func (r *HTMLRenderer) Render(_ context.Context, thread core.Thread) ([]byte, error) {
	view := threadView{Meta: thread.Meta, Entries: make([]entryView, 0, len(thread.Trail))}
	for _, e := range thread.Trail {
		view.Entries = append(view.Entries, newEntryView(e))
	}

	var buf bytes.Buffer
	if err := renderTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("executing render template: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

func newEntryView(e core.TrailEntry) entryView {
	v := entryView{BlogName: e.BlogName, HTML: template.HTML(SanitizeHTML(e.ContentHTML)), Video: e.Video}
	switch e.Type {
	case core.EntryAudio:
		v.Audio = true
		if len(e.Images) > 0 {
			v.ArtURL = e.Images[0]
		}
	case core.EntryText:
		// Inline images were replaced by placeholders; show them underneath.
		// Photo figures are already part of the content.
		for _, img := range e.Images {
			if !strings.Contains(e.ContentHTML, `src="`+html.EscapeString(img)+`"`) {
				v.Gallery = append(v.Gallery, img)
			}
		}
	}
	return v
}
