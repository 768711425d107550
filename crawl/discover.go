// Package crawl provides post discovery for --all mode.
// It finds a blog's posts via its sitemap, falling back to link extraction
// from the blog's own pages, and keeps crawling separate from rendering.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const (
	// MaxPosts caps how many posts one discovery returns.
	MaxPosts = 100
	// maxPages bounds the link crawl fallback.
	maxPages  = 20
	userAgent = "trailpipe/1.0 (+https://github.com/gaurav-prasanna/trailpipe)"
)

// sitemapURL holds a URL from a sitemap.
type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapSet is the root element of a sitemap.
type sitemapSet struct {
	URLs []sitemapURL `xml:"url"`
}

// Discoverer finds the posts of a blog.
type Discoverer struct {
	client *http.Client
	// blogURL maps a blog name to its site root.
	blogURL func(blog string) string
}

// NewDiscoverer returns a Discoverer that crawls {blog}.tumblr.com.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		client:  &http.Client{Timeout: 15 * time.Second},
		blogURL: func(blog string) string { return "https://" + blog + ".tumblr.com" },
	}
}

// DiscoverPosts returns up to MaxPosts posts of blog. It first tries the
// blog's sitemap, then falls back to crawling the blog's pages for links.
func (d *Discoverer) DiscoverPosts(ctx context.Context, blog string) ([]PostRef, error) {
	if !blogNameRegex.MatchString(blog) {
		return nil, fmt.Errorf("invalid blog name %q", blog)
	}
	root, err := url.Parse(d.blogURL(blog))
	if err != nil {
		return nil, fmt.Errorf("parsing blog URL: %w", err)
	}

	refs, err := d.fromSitemap(ctx, blog, root)
	if err == nil && len(refs) > 0 {
		return refs, nil
	}
	if err != nil {
		log.Debug().Err(err).Str("blog", blog).Msg("Sitemap unavailable, crawling links")
	}

	refs, err = d.fromLinks(ctx, blog, root)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no posts found for %s", blog)
	}
	return refs, nil
}

// fromSitemap reads post URLs from the blog's first sitemap page.
func (d *Discoverer) fromSitemap(ctx context.Context, blog string, root *url.URL) ([]PostRef, error) {
	body, err := d.get(ctx, root.JoinPath("sitemap1.xml").String())
	if err != nil {
		return nil, err
	}

	var sitemap sitemapSet
	if err := xml.Unmarshal(body, &sitemap); err != nil {
		return nil, fmt.Errorf("parsing sitemap: %w", err)
	}

	refs := NewQueue[PostRef]()
	for _, u := range sitemap.URLs {
		if refs.Len() >= MaxPosts {
			break
		}
		if ref, ok := d.refFromLink(blog, root, u.Loc); ok {
			refs.Add(ref)
		}
	}
	return refs.All(), nil
}

// fromLinks crawls the blog's pages breadth-first and collects post links.
func (d *Discoverer) fromLinks(ctx context.Context, blog string, root *url.URL) ([]PostRef, error) {
	pages := NewQueue[string]()
	pages.Add(NormalizeURL(root.String() + "/"))
	refs := NewQueue[PostRef]()

	for pages.HasNext() && pages.Len() <= maxPages && refs.Len() < MaxPosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageURL := pages.Next()

		body, err := d.get(ctx, pageURL)
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("Skipping page")
			continue // Skip failed pages, don't block the crawl.
		}

		links, err := extractLinks(string(body), pageURL)
		if err != nil {
			continue
		}

		for _, link := range links {
			if ref, ok := d.refFromLink(blog, root, link); ok {
				if refs.Len() < MaxPosts {
					refs.Add(ref)
				}
				continue
			}
			if IsSameDomain(link, root.Host) && !IsStaticAsset(link) {
				pages.Add(NormalizeURL(link))
			}
		}
	}

	return refs.All(), nil
}

// refFromLink recognizes post links on the blog's own site as well as
// www.tumblr.com links to the same blog.
func (d *Discoverer) refFromLink(blog string, root *url.URL, link string) (PostRef, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return PostRef{}, false
	}
	if u.Host == root.Host {
		return postRefFromPath(blog, u.Path)
	}
	ref, err := ParsePostURL(link)
	if err != nil || ref.Blog != blog {
		return PostRef{}, false
	}
	return ref, true
}

func (d *Discoverer) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// extractLinks extracts all href values from <a> tags, resolving relative URLs.
func extractLinks(html string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(baseURL)
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved := resolveURL(href, base)
		if resolved != "" {
			links = append(links, resolved)
		}
	})

	return links, nil
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	// Skip mailto, javascript, etc.
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
