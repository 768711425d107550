// Package trail assembles a post's reblog trail into the ordered, corrected
// list of entries that renderers consume.
//
// Tumblr's trail field is inconsistent across post types: audio and video
// roots never appear in it, photo attachments sit on the root post instead of
// the first trail item, answers carry the question outside the trail, and the
// first item can be attributed to the wrong blog. Assemble papers over all of
// that.
package trail

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/trailpipe/core"
)

const defaultWorkers = 4

// Assembler builds trails from raw posts.
type Assembler struct {
	extractor  core.Extractor
	normalizer core.Normalizer
	workers    int
}

// New creates an Assembler. workers bounds concurrent fragment extraction;
// values <= 0 use a small default.
func New(extractor core.Extractor, normalizer core.Normalizer, workers int) *Assembler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Assembler{extractor: extractor, normalizer: normalizer, workers: workers}
}

// Assemble normalizes post into its trail, oldest entry first.
func (a *Assembler) Assemble(post *core.RawPost) (core.Trail, error) {
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("post %s: %w", post.PostID(), err)
	}
	if !post.Type.Supported() {
		log.Debug().Str("post", post.PostID()).Str("type", string(post.Type)).Msg("no correction for post type, using trail as text")
	}

	var trail core.Trail

	// Audio and video roots are missing from the trail entirely.
	switch post.Type {
	case core.PostAudio:
		trail = append(trail, synthesizeAudio(post))
	case core.PostVideo:
		trail = append(trail, synthesizeVideo(post))
	}

	suppress := len(trail)+len(post.Trail) == 1
	extracted, err := a.extractAll(post.Trail, suppress)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", post.PostID(), err)
	}
	trail = append(trail, extracted...)

	if len(trail) == 0 {
		return nil, fmt.Errorf("post %s: %w", post.PostID(), &core.ShapeError{Type: post.Type, Field: "trail"})
	}

	// Tumblr sometimes attributes the first entry to the second reblogger.
	if post.RebloggedRootName != "" {
		trail[0].BlogName = post.RebloggedRootName
	}

	switch post.Type {
	case core.PostPhoto:
		attachPhotos(&trail[0], post.Photos)
	case core.PostAnswer:
		if err := a.prependQuestion(&trail[0], *post.AskingName, *post.Question); err != nil {
			return nil, fmt.Errorf("post %s: question: %w", post.PostID(), err)
		}
	}

	// A lone video says everything through its video and thumbnail.
	if len(trail) == 1 && trail[0].Type == core.EntryVideo {
		trail[0].Content = ""
	}

	return trail, nil
}

// Thread assembles post and attaches the metadata renderers need. blog is the
// requested blog as returned alongside the post; it supplies the avatar.
func (a *Assembler) Thread(post *core.RawPost, blog core.BlogInfo) (core.Thread, error) {
	trail, err := a.Assemble(post)
	if err != nil {
		return core.Thread{}, err
	}

	name := post.BlogName
	if name == "" {
		name = post.Blog.Name
	}
	meta := core.PostMeta{
		Blog:          name,
		ID:            post.PostID(),
		URL:           post.PostURL,
		Title:         post.Title,
		NoteCount:     post.NoteCount,
		Tags:          post.Tags,
		RebloggedFrom: post.RebloggedFromName,
		AvatarURL:     blog.AvatarURL(),
	}
	if meta.Title == "" {
		meta.Title = post.Summary
	}
	if meta.URL == "" {
		meta.URL = fmt.Sprintf("https://www.tumblr.com/%s/%s", name, meta.ID)
	}
	if meta.AvatarURL == "" {
		meta.AvatarURL = post.Blog.AvatarURL()
	}
	if post.RebloggedFromName != "" {
		meta.RebloggedBy = name
	}
	if post.IsSubmission {
		meta.Submitter = post.PostAuthor
	}

	return core.Thread{Meta: meta, Trail: trail}, nil
}

// extractAll runs the extractor over every fragment. Results keep the
// fragments' order regardless of completion order.
func (a *Assembler) extractAll(fragments []core.PostFragment, suppress bool) ([]core.TrailEntry, error) {
	out := make([]core.TrailEntry, len(fragments))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, f := range fragments {
		g.Go(func() error {
			entry, err := a.extractor.Extract(f, suppress)
			if err != nil {
				return fmt.Errorf("trail[%d] (%s): %w", i, f.Blog.Name, err)
			}
			out[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func synthesizeAudio(post *core.RawPost) core.TrailEntry {
	text := *post.TrackName + " (1 audio file attached)"
	return core.TrailEntry{
		BlogName:    post.RootBlogName(),
		Type:        core.EntryAudio,
		Content:     text,
		ContentHTML: text,
		Images:      []string{*post.AlbumArt},
	}
}

func synthesizeVideo(post *core.RawPost) core.TrailEntry {
	return core.TrailEntry{
		BlogName:    post.RootBlogName(),
		Type:        core.EntryVideo,
		Content:     "(video)",
		ContentHTML: "(video)",
		Video: &core.Video{
			URL:       *post.VideoURL,
			Width:     *post.ThumbnailWidth,
			Height:    *post.ThumbnailHeight,
			Thumbnail: *post.ThumbnailURL,
		},
		Images: []string{*post.ThumbnailURL},
	}
}

// attachPhotos moves the root's photos onto entry, replacing whatever the
// extractor found, and puts them in front of the HTML as full-width figures.
func attachPhotos(entry *core.TrailEntry, photos []core.Photo) {
	images := make([]string, 0, len(photos))
	var b strings.Builder
	for _, p := range photos {
		u := p.OriginalSize.URL
		images = append(images, u)
		fmt.Fprintf(&b, `<figure class="tmblr-full" data-full-bleed="true"><img src="%s"/></figure>`, html.EscapeString(u))
	}
	entry.Images = images
	entry.ContentHTML = b.String() + entry.ContentHTML
}

func (a *Assembler) prependQuestion(entry *core.TrailEntry, asker, question string) error {
	md, err := a.normalizer.Normalize(question)
	if err != nil {
		return err
	}

	content := asker + " asked:\n" + md
	if entry.Content != "" {
		content += "\n\n" + entry.Content
	}
	entry.Content = content

	entry.ContentHTML = fmt.Sprintf(
		`<div class="ask"><p class="ask-name"><strong>%s</strong> asked:</p><div class="ask-question">%s</div></div>`,
		html.EscapeString(asker), question,
	) + entry.ContentHTML
	return nil
}
