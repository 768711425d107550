package fetch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// BodyCache stores raw API bodies by key.
type BodyCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Cached wraps a fetcher with a body cache. Cache failures are logged and
// never fail a fetch.
type Cached struct {
	next  core.PostFetcher
	cache BodyCache
}

// NewCached creates a cache-through fetcher.
func NewCached(next core.PostFetcher, cache BodyCache) *Cached {
	return &Cached{next: next, cache: cache}
}

// Key returns the cache key for a post.
func Key(blog, id string) string {
	return blog + "-" + id
}

// FetchPost serves a fresh cached body when one exists, otherwise fetches
// and stores the result.
func (c *Cached) FetchPost(ctx context.Context, blog, id string) (*core.FetchResult, error) {
	key := Key(blog, id)

	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("post cache read failed")
	}
	if ok {
		res, err := Decode(body)
		if err == nil {
			log.Debug().Str("key", key).Msg("post cache hit")
			return res, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
	}

	res, err := c.next.FetchPost(ctx, blog, id)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, key, res.Body); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("post cache write failed")
	}
	return res, nil
}
