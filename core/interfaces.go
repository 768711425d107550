// Package core defines the data model and pipeline interfaces for trailpipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import "context"

// EntryType classifies a normalized trail entry.
type EntryType string

const (
	EntryText  EntryType = "text"
	EntryPhoto EntryType = "photo"
	EntryVideo EntryType = "video"
	EntryAudio EntryType = "audio"
)

// Video describes a video attached to a trail entry.
type Video struct {
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// TrailEntry is the normalized representation of one post in a reblog chain.
type TrailEntry struct {
	BlogName    string    `json:"blogname"`
	Type        EntryType `json:"type"`
	Content     string    `json:"content"`      // Markdown
	ContentHTML string    `json:"content_html"` // HTML with media placeholders
	Images      []string  `json:"images"`
	Video       *Video    `json:"video,omitempty"`
}

// Trail is the ordered reblog history of a post, oldest ancestor first.
type Trail []TrailEntry

// PostMeta holds the post-level metadata renderers need alongside the trail.
type PostMeta struct {
	Blog          string   `json:"blog"`
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title,omitempty"`
	NoteCount     int      `json:"note_count"`
	Tags          []string `json:"tags,omitempty"`
	RebloggedFrom string   `json:"reblogged_from,omitempty"`
	RebloggedBy   string   `json:"reblogged_by,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	Submitter     string   `json:"submitter,omitempty"`
}

// Thread is a normalized trail together with its post metadata.
type Thread struct {
	Meta  PostMeta `json:"meta"`
	Trail Trail    `json:"trail"`
}

// FetchResult holds a fetched post and the raw API body it came from.
type FetchResult struct {
	Post RawPost
	Blog BlogInfo // the requested blog, with avatar
	Body []byte   // raw response body, as cached
}

// PostFetcher retrieves a single post by blog name and id.
type PostFetcher interface {
	FetchPost(ctx context.Context, blog, id string) (*FetchResult, error)
}

// Normalizer converts an HTML fragment into trimmed Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Extractor turns one post fragment into a trail entry.
type Extractor interface {
	Extract(fragment PostFragment, suppressMediaPlaceholders bool) (TrailEntry, error)
}

// Renderer converts a thread into a final output format.
type Renderer interface {
	Render(ctx context.Context, thread Thread) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".png").
	Extension() string
}
