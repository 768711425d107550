// Package card builds link-preview metadata (OpenGraph and Twitter cards)
// for a normalized thread.
package card

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// Card types understood by link unfurlers.
const (
	TypeTweet        = "tweet"
	TypeSummaryImage = "summary_large_image"
	TypeVideo        = "video"
)

// Description limits. Unfurlers show at most 349 characters, 256 next to a
// video player.
const (
	maxDescription      = 349
	maxVideoDescription = 256
	truncated           = "... (see full thread)"
	truncatedVideo      = "... (click to see full thread)"
)

// Card is what the embed page needs to describe one post.
type Card struct {
	PostURL     string
	Header      string
	MiniHeader  string
	OP          string
	AvatarURL   string
	Description string
	Image       string
	Video       *core.Video
	Type        string

	// NeedsRender is set when the text card cannot show the thread
	// faithfully and a screenshot should be used instead.
	NeedsRender bool
	Rendered    bool
}

// Build derives a card from a thread. postURL is the canonical link the
// card points at.
func Build(thread core.Thread, postURL string) Card {
	meta := thread.Meta
	c := Card{
		PostURL:    postURL,
		Header:     header(meta.Blog, meta.RebloggedFrom),
		MiniHeader: fmt.Sprintf("%d notes", meta.NoteCount),
		OP:         meta.Blog,
		AvatarURL:  meta.AvatarURL,
	}

	var videos, images int
	for _, e := range thread.Trail {
		if e.Video != nil {
			videos++
			if c.Video == nil {
				c.Video = e.Video
			}
			// A video entry's only image is its thumbnail.
			continue
		}
		if len(e.Images) > 0 && c.Image == "" {
			c.Image = e.Images[0]
		}
		images += len(e.Images)
		if e.Type == core.EntryAudio {
			c.NeedsRender = true
		}
	}
	if images > 1 || videos > 1 || (c.Image != "" && c.Video != nil) {
		c.NeedsRender = true
	}

	desc := Description(thread)
	limit, suffix := maxDescription, truncated
	if c.Video != nil {
		limit, suffix = maxVideoDescription, truncatedVideo
	}
	if d, ok := truncate(desc, limit, suffix); ok {
		desc = d
		c.NeedsRender = true
	}
	c.Description = desc

	switch {
	case c.Image != "" && c.Video == nil:
		c.Type = TypeSummaryImage
	case c.Video != nil && c.Image == "":
		c.Type = TypeVideo
	default:
		c.Type = TypeTweet
	}
	return c
}

// UseRender swaps the card over to a rendered screenshot. When the thread
// has a video the description points at the raw video instead.
func (c *Card) UseRender(imageURL, videoLink string) {
	c.Image = imageURL
	c.Type = TypeSummaryImage
	c.Description = ""
	if c.Video != nil {
		c.Description = "Hint: You can get the raw video by pasting in the following link: " + videoLink
	}
	c.Video = nil
	c.Rendered = true
}

// Description joins the trail's non-empty entries into plain text.
func Description(thread core.Thread) string {
	var entries []core.TrailEntry
	for _, e := range thread.Trail {
		if strings.TrimSpace(e.Content) != "" {
			entries = append(entries, e)
		}
	}

	var b strings.Builder
	if len(entries) == 1 {
		if thread.Meta.RebloggedFrom != "" {
			fmt.Fprintf(&b, "▪ %s:\n", entries[0].BlogName)
		}
		b.WriteString(dropBlankLines(entries[0].Content))
	} else {
		for _, e := range entries {
			fmt.Fprintf(&b, "\n\n▪ %s:\n%s", e.BlogName, dropBlankLines(e.Content))
		}
	}

	if thread.Meta.Submitter != "" {
		fmt.Fprintf(&b, "\n\n(Submitted by %s)", thread.Meta.Submitter)
	}
	if len(thread.Meta.Tags) > 0 {
		b.WriteString("\n\n(#" + strings.Join(thread.Meta.Tags, " #") + ")")
	}
	return strings.TrimSpace(b.String())
}

func header(by, from string) string {
	switch {
	case by == "" || from == "":
		return by
	case by == from:
		return by + " 🔁"
	default:
		return by + " 🔁 " + from
	}
}

func dropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// truncate cuts s so that it fits in limit runes including suffix.
func truncate(s string, limit int, suffix string) (string, bool) {
	runes := []rune(s)
	max := limit - len([]rune(suffix))
	if len(runes) <= max {
		return s, false
	}
	return string(runes[:max]) + suffix, true
}
