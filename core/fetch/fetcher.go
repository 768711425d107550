// Package fetch implements the PostFetcher interface.
// It retrieves a single post, with reblog info, from the Tumblr v2 API.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gaurav-prasanna/trailpipe/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBaseURL   = "https://api.tumblr.com"
	defaultUserAgent = "trailpipe/1.0 (https://github.com/gaurav-prasanna/trailpipe)"

	// errorCodeLocked is returned with a 404 for blogs that are only
	// visible to logged-in users.
	errorCodeLocked = 4012
)

// Errors surfaced to callers before a payload ever reaches the assembler.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrBlogLocked   = errors.New("blog is only available to logged-in users")
	ErrRateLimited  = errors.New("rate limited by the Tumblr API")
)

// envelope is the Tumblr API response wrapper.
type envelope struct {
	Meta struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`
	Errors   []struct {
		Title string `json:"title"`
		Code  int    `json:"code"`
	} `json:"errors"`
}

type postsResponse struct {
	Blog  core.BlogInfo  `json:"blog"`
	Posts []core.RawPost `json:"posts"`
}

// Client fetches posts from the Tumblr API.
type Client struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// New creates a Client authenticating with the given consumer key.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// FetchPost retrieves the post with the given id from blog.
func (c *Client) FetchPost(ctx context.Context, blog, id string) (*core.FetchResult, error) {
	q := url.Values{}
	q.Set("id", id)
	q.Set("reblog_info", "true")
	q.Set("api_key", c.APIKey)
	endpoint := fmt.Sprintf("%s/v2/blog/%s/posts?%s", c.BaseURL, url.PathEscape(blog), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", blog, id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body, blog, id)
	}

	return Decode(body)
}

// Decode parses a successful API body. It is shared with the cache, which
// stores bodies verbatim.
func Decode(body []byte) (*core.FetchResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding API envelope: %w", err)
	}
	var pr postsResponse
	if err := json.Unmarshal(env.Response, &pr); err != nil {
		return nil, fmt.Errorf("decoding API response: %w", err)
	}
	if len(pr.Posts) == 0 {
		return nil, ErrPostNotFound
	}
	return &core.FetchResult{Post: pr.Posts[0], Blog: pr.Blog, Body: body}, nil
}

func statusError(status int, body []byte, blog, id string) error {
	switch status {
	case http.StatusNotFound:
		var env envelope
		if json.Unmarshal(body, &env) == nil && len(env.Errors) > 0 && env.Errors[0].Code == errorCodeLocked {
			return fmt.Errorf("%s/%s: %w", blog, id, ErrBlogLocked)
		}
		return fmt.Errorf("%s/%s: %w", blog, id, ErrPostNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s/%s: %w", blog, id, ErrRateLimited)
	default:
		return fmt.Errorf("unexpected status %d for %s/%s", status, blog, id)
	}
}
