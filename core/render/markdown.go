// Package render provides output renderers for normalized threads.
// This file implements the Markdown renderer; its output is also the input
// of the PDF renderer.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// MarkdownRenderer writes a thread as a Markdown document.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the thread as Markdown bytes.
func (r *MarkdownRenderer) Render(_ context.Context, thread core.Thread) ([]byte, error) {
	return []byte(TrailMarkdown(thread)), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// TrailMarkdown lays a thread out as Markdown: an optional title, one
// section per trail entry, then tags and the source link.
func TrailMarkdown(thread core.Thread) string {
	var b strings.Builder

	if thread.Meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", thread.Meta.Title)
	}

	for i, e := range thread.Trail {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "**%s**:\n", e.BlogName)
		if e.Content != "" {
			b.WriteString("\n" + e.Content + "\n")
		}
		if e.Video != nil {
			fmt.Fprintf(&b, "\n[video](%s)\n", e.Video.URL)
		}
		for _, img := range e.Images {
			fmt.Fprintf(&b, "\n![image](%s)\n", img)
		}
	}

	if len(thread.Meta.Tags) > 0 {
		b.WriteString("\n\n#" + strings.Join(thread.Meta.Tags, " #") + "\n")
	}
	if thread.Meta.URL != "" {
		fmt.Fprintf(&b, "\n\nSource: %s\n", thread.Meta.URL)
	}

	return strings.TrimSpace(b.String()) + "\n"
}
