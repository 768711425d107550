package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/trailpipe/config"
	"github.com/gaurav-prasanna/trailpipe/core"
	"github.com/gaurav-prasanna/trailpipe/core/fetch"
	"github.com/gaurav-prasanna/trailpipe/core/output"
)

type fakeThreads map[string]core.Thread

func (f fakeThreads) Thread(_ context.Context, blog, id string) (core.Thread, error) {
	switch id {
	case "403":
		return core.Thread{}, fmt.Errorf("fetch: %w", fetch.ErrBlogLocked)
	case "429":
		return core.Thread{}, fmt.Errorf("fetch: %w", fetch.ErrRateLimited)
	case "422":
		return core.Thread{}, fmt.Errorf("assemble: %w", &core.ShapeError{Type: core.PostVideo, Field: "video_url"})
	case "502":
		return core.Thread{}, fmt.Errorf("fetch: %w", context.DeadlineExceeded)
	}
	t, ok := f[blog+"/"+id]
	if !ok {
		return core.Thread{}, fmt.Errorf("fetch: %w", fetch.ErrPostNotFound)
	}
	return t, nil
}

type fakeRenders struct {
	dir    string
	forced []bool
}

func (f *fakeRenders) Ensure(_ context.Context, n output.Name, force bool) (string, error) {
	f.forced = append(f.forced, force)
	if n.PostID == "404" {
		return "", fetch.ErrPostNotFound
	}
	path := filepath.Join(f.dir, n.String())
	return path, os.WriteFile(path, []byte("render:"+n.String()), 0644)
}

func testConfig() *config.Config {
	c := &config.Config{
		AppName:    "trailpipe",
		BaseURL:    "https://embed.example.com",
		ProjectURL: "https://github.com/gaurav-prasanna/trailpipe",
	}
	c.Renders.Enable = true
	c.Renders.Timeout = time.Second
	return c
}

var threads = fakeThreads{
	"staff/1": {
		Meta:  core.PostMeta{Blog: "staff", ID: "1", NoteCount: 3},
		Trail: core.Trail{{BlogName: "staff", Type: core.EntryText, Content: "hello world"}},
	},
	"staff/2": {
		Meta: core.PostMeta{Blog: "staff", ID: "2"},
		Trail: core.Trail{{
			BlogName: "staff",
			Type:     core.EntryPhoto,
			Content:  "two pics",
			Images:   []string{"https://64.media.tumblr.com/a.jpg", "https://64.media.tumblr.com/b.jpg"},
		}},
	},
	"staff/3": {
		Meta: core.PostMeta{Blog: "staff", ID: "3"},
		Trail: core.Trail{{
			BlogName: "staff",
			Type:     core.EntryVideo,
			Video:    &core.Video{URL: "https://va.media.tumblr.com/v.mp4", Width: 640, Height: 360},
		}},
	},
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzAndRoot(t *testing.T) {
	h := New(testConfig(), threads, nil).Router()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, h, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.com/gaurav-prasanna/trailpipe", rec.Header().Get("Location"))
}

func TestEmbed_TextCard(t *testing.T) {
	h := New(testConfig(), threads, nil).Router()

	rec := get(t, h, "/staff/1/some-slug")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<meta property="og:url" content="https://www.tumblr.com/staff/1/some-slug">`)
	assert.Contains(t, body, `<meta property="og:description" content="hello world">`)
	assert.Contains(t, body, `<meta name="twitter:card" content="tweet">`)
	assert.Contains(t, body, `content="trailpipe - 3 notes"`)
	assert.Contains(t, body, "/oembed.json?")
}

func TestEmbed_RenderedCard(t *testing.T) {
	h := New(testConfig(), threads, &fakeRenders{dir: t.TempDir()}).Router()

	rec := get(t, h, "/staff/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<meta property="og:image" content="https://embed.example.com/renders/staff-2.png">`)
	assert.Contains(t, rec.Body.String(), `content="summary_large_image"`)

	// Without a render source the first image is used.
	h = New(testConfig(), threads, nil).Router()
	rec = get(t, h, "/staff/2")
	assert.Contains(t, rec.Body.String(), `<meta property="og:image" content="https://64.media.tumblr.com/a.jpg">`)
}

func TestEmbed_Video(t *testing.T) {
	h := New(testConfig(), threads, nil).Router()

	rec := get(t, h, "/staff/3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<meta property="og:video" content="https://va.media.tumblr.com/v.mp4">`)
	assert.Contains(t, rec.Body.String(), `content="video"`)

	rec = get(t, h, "/staff/3?video")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://va.media.tumblr.com/v.mp4", rec.Header().Get("Location"))
}

func TestEmbed_Errors(t *testing.T) {
	h := New(testConfig(), threads, nil).Router()

	cases := map[string]int{
		"/staff/404":     http.StatusNotFound,
		"/staff/403":     http.StatusForbidden,
		"/staff/429":     http.StatusTooManyRequests,
		"/staff/422":     http.StatusUnprocessableEntity,
		"/staff/502":     http.StatusBadGateway,
		"/staff/notanid": http.StatusNotFound,
	}
	for target, want := range cases {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, want, get(t, h, target).Code)
		})
	}

	rec := get(t, h, "/staff/422")
	assert.Contains(t, rec.Body.String(), "unable to render this post")

	rec = get(t, h, "/staff/403")
	assert.Contains(t, rec.Body.String(), `href="https://www.tumblr.com/staff/403"`)
}

func TestRenders(t *testing.T) {
	renders := &fakeRenders{dir: t.TempDir()}
	cfg := testConfig()
	h := New(cfg, threads, renders).Router()

	rec := get(t, h, "/renders/staff-2.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "render:staff-2.png", rec.Body.String())
	assert.Equal(t, []bool{false}, renders.forced)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/renders/staff.png").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/renders/staff-2.exe").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/renders/staff-404.png").Code)

	cfg.Renders.Debug = true
	get(t, h, "/renders/staff-2.png")
	assert.True(t, renders.forced[len(renders.forced)-1])

	cfg.Renders.Enable = false
	assert.Equal(t, http.StatusNotFound, get(t, h, "/renders/staff-2.png").Code)
}

func TestRenders_Disabled(t *testing.T) {
	h := New(testConfig(), threads, nil).Router()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/renders/staff-2.png").Code)
}

func TestOEmbed(t *testing.T) {
	cfg := testConfig()
	cfg.MOTD = "now with renders"
	h := New(cfg, threads, nil).Router()

	rec := get(t, h, "/oembed.json?ttype=link&op=staff&desc=3+notes&link=https://www.tumblr.com/staff/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var got oembed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, oembed{
		Type:         "link",
		Version:      "1.0",
		ProviderName: "trailpipe - now with renders",
		ProviderURL:  "https://github.com/gaurav-prasanna/trailpipe",
		Title:        "staff",
		AuthorName:   "3 notes",
		AuthorURL:    "https://www.tumblr.com/staff/1",
	}, got)
}
