// Package extract implements the Extractor interface.
// It turns one reblog-trail fragment into a normalized trail entry by:
//  1. Classifying the fragment (video, then audio, then text)
//  2. Pulling media out of the HTML and leaving textual placeholders behind
//  3. Converting what is left into Markdown
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/trailpipe/core"
)

const imagePlaceholder = "(image) "

// Precompiled matchers; fragments are small but extraction runs per trail entry.
var (
	matchVideo       = cascadia.MustCompile("video")
	matchVideoFigure = cascadia.MustCompile("figure:has(video)")
	matchSource      = cascadia.MustCompile("source[src]")
	matchAudio       = cascadia.MustCompile("audio")
	matchImage       = cascadia.MustCompile("img")
)

// lowResHosts maps the video CDN hosts onto the host that serves frame stills.
var lowResHosts = strings.NewReplacer(
	"va.media.tumblr.com", "64.media.tumblr.com",
	"vt.media.tumblr.com", "64.media.tumblr.com",
)

// edit replaces node with text, or drops it when text is empty.
type edit struct {
	node *html.Node
	text string
}

// PostExtractor converts post fragments into trail entries.
type PostExtractor struct {
	normalizer core.Normalizer
}

// New creates a PostExtractor that renders Markdown with the given normalizer.
func New(normalizer core.Normalizer) *PostExtractor {
	return &PostExtractor{normalizer: normalizer}
}

// Extract normalizes a single fragment. When suppressMediaPlaceholders is
// set, images are dropped from the HTML without an "(image)" stand-in.
func (e *PostExtractor) Extract(fragment core.PostFragment, suppressMediaPlaceholders bool) (core.TrailEntry, error) {
	entry := core.TrailEntry{
		BlogName: fragment.Blog.Name,
		Type:     core.EntryText,
		Images:   []string{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment.ContentRaw))
	if err != nil {
		return entry, fmt.Errorf("parsing fragment HTML: %w", err)
	}

	// Edits are collected first and applied once the traversal is done.
	var edits []edit

	switch {
	case doc.FindMatcher(matchVideo).Length() > 0:
		entry.Type = core.EntryVideo
		video, figures, err := extractVideo(doc)
		if err != nil {
			return entry, err
		}
		entry.Video = video
		entry.Images = []string{video.Thumbnail}
		for _, fig := range figures {
			edits = append(edits, edit{node: fig})
		}

	case doc.FindMatcher(matchAudio).Length() > 0:
		entry.Type = core.EntryAudio
		audios := doc.FindMatcher(matchAudio)
		placeholder := fmt.Sprintf("(%d audio files attached) ", audios.Length())
		for i, node := range audios.Nodes {
			if i == 0 {
				edits = append(edits, edit{node: node, text: placeholder})
				continue
			}
			edits = append(edits, edit{node: node})
		}
	}

	if len(entry.Images) == 0 {
		for _, node := range doc.FindMatcher(matchImage).Nodes {
			src := attr(node, "src")
			if src == "" {
				return entry, &core.ShapeError{Type: core.PostType(entry.Type), Field: "img[src]"}
			}
			entry.Images = append(entry.Images, src)
			ed := edit{node: node}
			if !suppressMediaPlaceholders {
				ed.text = imagePlaceholder
			}
			edits = append(edits, ed)
		}
	}

	applyEdits(edits)

	contentHTML, err := doc.Find("body").Html()
	if err != nil {
		return entry, fmt.Errorf("serializing fragment: %w", err)
	}
	entry.ContentHTML = contentHTML

	content, err := e.normalizer.Normalize(contentHTML)
	if err != nil {
		return entry, err
	}
	if content == "" {
		switch entry.Type {
		case core.EntryVideo:
			content = "(video)"
		case core.EntryAudio:
			content = "(audio)"
		}
	}
	entry.Content = content

	return entry, nil
}

// extractVideo reads the first video figure and returns every video figure
// so the caller can drop them from the content.
func extractVideo(doc *goquery.Document) (*core.Video, []*html.Node, error) {
	figures := doc.FindMatcher(matchVideoFigure)
	if figures.Length() == 0 {
		return nil, nil, &core.ShapeError{Type: core.PostVideo, Field: "figure", Detail: "video element outside a figure"}
	}
	fig := figures.First()
	video := fig.FindMatcher(matchVideo).First()

	src, _ := video.FindMatcher(matchSource).First().Attr("src")
	if src == "" {
		src, _ = video.Attr("src")
	}
	if src == "" {
		return nil, nil, &core.ShapeError{Type: core.PostVideo, Field: "video source"}
	}

	width, err := intAttr(fig, "data-orig-width")
	if err != nil {
		return nil, nil, err
	}
	height, err := intAttr(fig, "data-orig-height")
	if err != nil {
		return nil, nil, err
	}

	return &core.Video{
		URL:       src,
		Width:     width,
		Height:    height,
		Thumbnail: thumbnailURL(src),
	}, figures.Nodes, nil
}

// thumbnailURL derives the first-frame still for a Tumblr-hosted video.
func thumbnailURL(videoURL string) string {
	return lowResHosts.Replace(strings.ReplaceAll(videoURL, ".mp4", "_frame1.jpg"))
}

func intAttr(s *goquery.Selection, name string) (int, error) {
	raw, ok := s.Attr(name)
	if !ok {
		return 0, &core.ShapeError{Type: core.PostVideo, Field: "figure[" + name + "]"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &core.ShapeError{Type: core.PostVideo, Field: "figure[" + name + "]", Detail: err.Error()}
	}
	return n, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func applyEdits(edits []edit) {
	for _, ed := range edits {
		parent := ed.node.Parent
		if parent == nil {
			continue
		}
		if ed.text != "" {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: ed.text}, ed.node)
		}
		parent.RemoveChild(ed.node)
	}
}
