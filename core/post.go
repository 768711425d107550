package core

import (
	"strconv"
)

// PostType is the root post's declared type, as reported by the Tumblr API.
type PostType string

const (
	PostText   PostType = "text"
	PostPhoto  PostType = "photo"
	PostVideo  PostType = "video"
	PostAudio  PostType = "audio"
	PostAnswer PostType = "answer"
	PostQuote  PostType = "quote"
	PostLink   PostType = "link"
	PostChat   PostType = "chat"
)

// Avatar is one size of a blog avatar.
type Avatar struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// BlogInfo identifies a blog inside a post or fragment.
type BlogInfo struct {
	Name   string   `json:"name"`
	Title  string   `json:"title,omitempty"`
	Avatar []Avatar `json:"avatar,omitempty"`
}

// AvatarURL returns the largest avatar URL, or "" when the blog has none.
func (b BlogInfo) AvatarURL() string {
	if len(b.Avatar) == 0 {
		return ""
	}
	return b.Avatar[0].URL
}

// PhotoSize is one rendition of a photo attachment.
type PhotoSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Photo is an attachment of a photo post.
type Photo struct {
	Caption      string    `json:"caption"`
	OriginalSize PhotoSize `json:"original_size"`
}

// PostFragment is one post's contribution within a reblog trail.
type PostFragment struct {
	Blog       BlogInfo `json:"blog"`
	ContentRaw string   `json:"content_raw"`
	Content    string   `json:"content"`
}

// RawPost is a post as returned by the Tumblr API with reblog info.
//
// Type-specific fields are pointers so that Validate can tell a missing
// field apart from an empty one.
type RawPost struct {
	ID                int64          `json:"id"`
	IDString          string         `json:"id_string"`
	Type              PostType       `json:"type"`
	Blog              BlogInfo       `json:"blog"`
	BlogName          string         `json:"blog_name"`
	PostURL           string         `json:"post_url"`
	Title             string         `json:"title,omitempty"`
	Summary           string         `json:"summary"`
	NoteCount         int            `json:"note_count"`
	Tags              []string       `json:"tags"`
	IsSubmission      bool           `json:"is_submission"`
	PostAuthor        string         `json:"post_author"`
	RebloggedFromName string         `json:"reblogged_from_name,omitempty"`
	RebloggedRootName string         `json:"reblogged_root_name,omitempty"`
	Trail             []PostFragment `json:"trail"`

	// audio
	TrackName *string `json:"track_name,omitempty"`
	AlbumArt  *string `json:"album_art,omitempty"`

	// video
	VideoURL        *string `json:"video_url,omitempty"`
	ThumbnailURL    *string `json:"thumbnail_url,omitempty"`
	ThumbnailWidth  *int    `json:"thumbnail_width,omitempty"`
	ThumbnailHeight *int    `json:"thumbnail_height,omitempty"`

	// photo
	Photos []Photo `json:"photos,omitempty"`

	// answer
	AskingName *string `json:"asking_name,omitempty"`
	Question   *string `json:"question,omitempty"`
}

// PostID returns the post id as a string.
func (p *RawPost) PostID() string {
	if p.IDString != "" {
		return p.IDString
	}
	return strconv.FormatInt(p.ID, 10)
}

// RootBlogName returns the name the oldest trail entry should be attributed to.
func (p *RawPost) RootBlogName() string {
	if p.RebloggedRootName != "" {
		return p.RebloggedRootName
	}
	return p.Blog.Name
}

// Supported reports whether the post type has a dedicated correction branch
// or is plain text.
func (t PostType) Supported() bool {
	switch t {
	case PostText, PostPhoto, PostVideo, PostAudio, PostAnswer:
		return true
	}
	return false
}

// Validate checks that the fields required by the post's type are present.
// Unknown types are accepted when the trail can carry them as text.
func (p *RawPost) Validate() error {
	switch p.Type {
	case PostAudio:
		if p.TrackName == nil {
			return shapeErr(p.Type, "track_name")
		}
		if p.AlbumArt == nil {
			return shapeErr(p.Type, "album_art")
		}
	case PostVideo:
		if p.VideoURL == nil {
			return shapeErr(p.Type, "video_url")
		}
		if p.ThumbnailURL == nil {
			return shapeErr(p.Type, "thumbnail_url")
		}
		if p.ThumbnailWidth == nil {
			return shapeErr(p.Type, "thumbnail_width")
		}
		if p.ThumbnailHeight == nil {
			return shapeErr(p.Type, "thumbnail_height")
		}
	case PostPhoto:
		if len(p.Photos) == 0 {
			return shapeErr(p.Type, "photos")
		}
		for _, ph := range p.Photos {
			if ph.OriginalSize.URL == "" {
				return shapeErr(p.Type, "photos[].original_size.url")
			}
		}
		if len(p.Trail) == 0 {
			return shapeErr(p.Type, "trail")
		}
	case PostAnswer:
		if p.AskingName == nil {
			return shapeErr(p.Type, "asking_name")
		}
		if p.Question == nil {
			return shapeErr(p.Type, "question")
		}
		if len(p.Trail) == 0 {
			return shapeErr(p.Type, "trail")
		}
	case PostText:
		if len(p.Trail) == 0 {
			return shapeErr(p.Type, "trail")
		}
	default:
		if len(p.Trail) == 0 {
			return &TypeError{Type: p.Type}
		}
	}
	return nil
}

func shapeErr(t PostType, field string) error {
	return &ShapeError{Type: t, Field: field}
}
