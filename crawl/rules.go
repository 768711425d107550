// Package crawl: post references and URL rules.
// Parses the URL shapes Tumblr uses for a post and normalizes links found
// while crawling a blog.
package crawl

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ErrNotPostURL is returned for URLs that do not name a single post.
var ErrNotPostURL = errors.New("not a tumblr post URL")

var (
	blogNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	postIDRegex   = regexp.MustCompile(`^[0-9]+$`)
)

// staticExtensions are file extensions to skip during crawling.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true,
	".mp4": true, ".webm": true, ".mp3": true,
	".xml": true, ".rss": true,
}

// PostRef names one post.
type PostRef struct {
	Blog string
	ID   string
}

// String returns the short blog/id form.
func (r PostRef) String() string {
	return r.Blog + "/" + r.ID
}

// URL returns the canonical post URL.
func (r PostRef) URL() string {
	return "https://www.tumblr.com/" + r.Blog + "/" + r.ID
}

// ParsePostURL accepts www.tumblr.com/{blog}/{id}[/slug],
// {blog}.tumblr.com/post/{id}[/slug] and the short {blog}/{id} form.
func ParsePostURL(raw string) (PostRef, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return PostRef{}, fmt.Errorf("%w: empty", ErrNotPostURL)
	}

	// Short form: the first segment is a bare blog name.
	if !strings.Contains(s, "://") {
		first, _, _ := strings.Cut(s, "/")
		if !strings.Contains(first, ".") {
			return refFromSegments(raw, splitPath(s))
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return PostRef{}, fmt.Errorf("%w: %q: %v", ErrNotPostURL, raw, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segs := splitPath(u.Path)

	switch {
	case host == "tumblr.com":
		return refFromSegments(raw, segs)
	case strings.HasSuffix(host, ".tumblr.com"):
		if len(segs) < 2 || segs[0] != "post" {
			return PostRef{}, fmt.Errorf("%w: %q", ErrNotPostURL, raw)
		}
		blog := strings.TrimSuffix(host, ".tumblr.com")
		return refFromSegments(raw, append([]string{blog}, segs[1:]...))
	}
	return PostRef{}, fmt.Errorf("%w: %q", ErrNotPostURL, raw)
}

// postRefFromPath reads a post reference for blog out of a link path, in
// either the /post/{id} or the /{blog}/{id} form.
func postRefFromPath(blog, p string) (PostRef, bool) {
	segs := splitPath(p)
	if len(segs) < 2 || len(segs) > 3 {
		return PostRef{}, false
	}
	if segs[0] != "post" && segs[0] != blog {
		return PostRef{}, false
	}
	if !postIDRegex.MatchString(segs[1]) {
		return PostRef{}, false
	}
	return PostRef{Blog: blog, ID: segs[1]}, true
}

func refFromSegments(raw string, segs []string) (PostRef, error) {
	if len(segs) < 2 || len(segs) > 3 {
		return PostRef{}, fmt.Errorf("%w: %q", ErrNotPostURL, raw)
	}
	blog := strings.ToLower(segs[0])
	if !blogNameRegex.MatchString(blog) || !postIDRegex.MatchString(segs[1]) {
		return PostRef{}, fmt.Errorf("%w: %q", ErrNotPostURL, raw)
	}
	return PostRef{Blog: blog, ID: segs[1]}, nil
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// IsSameDomain checks if the given URL belongs to the specified domain.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return staticExtensions[ext]
}

// NormalizeURL strips fragments, queries and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawQuery = ""

	// Remove trailing slash (but keep root "/").
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}
