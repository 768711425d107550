package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/trailpipe/core"
)

const postURL = "https://www.tumblr.com/staff/1"

func textEntry(blog, content string) core.TrailEntry {
	return core.TrailEntry{BlogName: blog, Type: core.EntryText, Content: content}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "op", header("op", ""))
	assert.Equal(t, "me 🔁", header("me", "me"))
	assert.Equal(t, "me 🔁 you", header("me", "you"))
}

func TestBuild_SingleOriginalPost(t *testing.T) {
	thread := core.Thread{
		Meta:  core.PostMeta{Blog: "staff", NoteCount: 12, Tags: []string{"news", "tumblr"}},
		Trail: core.Trail{textEntry("staff", "hello\n\n\nworld")},
	}
	c := Build(thread, postURL)

	assert.Equal(t, "staff", c.Header)
	assert.Equal(t, "12 notes", c.MiniHeader)
	assert.Equal(t, "hello\nworld\n\n(#news #tumblr)", c.Description)
	assert.Equal(t, TypeTweet, c.Type)
	assert.False(t, c.NeedsRender)
}

func TestBuild_ReblogChain(t *testing.T) {
	thread := core.Thread{
		Meta: core.PostMeta{Blog: "c", RebloggedFrom: "b"},
		Trail: core.Trail{
			textEntry("a", "first"),
			textEntry("b", ""),
			textEntry("c", "third"),
		},
	}
	c := Build(thread, postURL)

	assert.Equal(t, "c 🔁 b", c.Header)
	// Empty reblogs are skipped.
	assert.Equal(t, "▪ a:\nfirst\n\n▪ c:\nthird", c.Description)
}

func TestBuild_SingleReblogged(t *testing.T) {
	thread := core.Thread{
		Meta:  core.PostMeta{Blog: "b", RebloggedFrom: "a"},
		Trail: core.Trail{textEntry("a", "only"), textEntry("b", "")},
	}
	assert.Equal(t, "▪ a:\nonly", Build(thread, postURL).Description)
}

func TestBuild_Submission(t *testing.T) {
	thread := core.Thread{
		Meta:  core.PostMeta{Blog: "b", Submitter: "fan"},
		Trail: core.Trail{textEntry("b", "hi")},
	}
	assert.Equal(t, "hi\n\n(Submitted by fan)", Build(thread, postURL).Description)
}

func TestBuild_Image(t *testing.T) {
	entry := textEntry("a", "pic")
	entry.Type = core.EntryPhoto
	entry.Images = []string{"https://64.media.tumblr.com/1.jpg"}
	c := Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{entry}}, postURL)

	assert.Equal(t, "https://64.media.tumblr.com/1.jpg", c.Image)
	assert.Equal(t, TypeSummaryImage, c.Type)
	assert.False(t, c.NeedsRender)

	entry.Images = append(entry.Images, "https://64.media.tumblr.com/2.jpg")
	c = Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{entry}}, postURL)
	assert.True(t, c.NeedsRender)
}

func TestBuild_Video(t *testing.T) {
	video := core.TrailEntry{
		BlogName: "a",
		Type:     core.EntryVideo,
		Images:   []string{"https://64.media.tumblr.com/v_frame1.jpg"},
		Video:    &core.Video{URL: "https://va.media.tumblr.com/v.mp4", Width: 640, Height: 360},
	}
	c := Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{video}}, postURL)

	require.NotNil(t, c.Video)
	assert.Equal(t, TypeVideo, c.Type)
	assert.Empty(t, c.Image)
	assert.False(t, c.NeedsRender)

	pic := textEntry("b", "nice")
	pic.Images = []string{"https://64.media.tumblr.com/1.jpg"}
	c = Build(core.Thread{Meta: core.PostMeta{Blog: "b"}, Trail: core.Trail{video, pic}}, postURL)
	assert.Equal(t, TypeTweet, c.Type)
	assert.True(t, c.NeedsRender)
}

func TestBuild_AudioNeedsRender(t *testing.T) {
	audio := core.TrailEntry{BlogName: "a", Type: core.EntryAudio, Content: "Song (1 audio file attached)"}
	assert.True(t, Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{audio}}, postURL).NeedsRender)
}

func TestBuild_Truncation(t *testing.T) {
	long := strings.Repeat("é", 400)
	c := Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{textEntry("a", long)}}, postURL)

	assert.True(t, c.NeedsRender)
	assert.True(t, strings.HasSuffix(c.Description, "... (see full thread)"))
	assert.Len(t, []rune(c.Description), 349)

	video := core.TrailEntry{
		BlogName: "a",
		Type:     core.EntryVideo,
		Content:  long,
		Video:    &core.Video{URL: "https://va.media.tumblr.com/v.mp4"},
	}
	c = Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{video}}, postURL)
	assert.True(t, strings.HasSuffix(c.Description, "... (click to see full thread)"))
	assert.Len(t, []rune(c.Description), 256)
}

func TestBuild_ShortNotTruncated(t *testing.T) {
	text := strings.Repeat("a", maxDescription-len(truncated))
	c := Build(core.Thread{Meta: core.PostMeta{Blog: "a"}, Trail: core.Trail{textEntry("a", text)}}, postURL)
	assert.Equal(t, text, c.Description)
	assert.False(t, c.NeedsRender)
}

func TestUseRender(t *testing.T) {
	c := Card{Description: "text", Type: TypeTweet}
	c.UseRender("https://example.test/renders/a-1.png", "https://example.test/a/1?video")
	assert.Equal(t, TypeSummaryImage, c.Type)
	assert.Empty(t, c.Description)
	assert.True(t, c.Rendered)

	c = Card{Video: &core.Video{URL: "v.mp4"}, Type: TypeVideo}
	c.UseRender("https://example.test/renders/a-1.png", "https://example.test/a/1?video")
	assert.Nil(t, c.Video)
	assert.Contains(t, c.Description, "https://example.test/a/1?video")
}
