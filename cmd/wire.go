package cmd

import (
	"fmt"

	"github.com/gaurav-prasanna/trailpipe/config"
	"github.com/gaurav-prasanna/trailpipe/core/cache"
	"github.com/gaurav-prasanna/trailpipe/core/extract"
	"github.com/gaurav-prasanna/trailpipe/core/fetch"
	"github.com/gaurav-prasanna/trailpipe/core/normalize"
	"github.com/gaurav-prasanna/trailpipe/core/pipeline"
	"github.com/gaurav-prasanna/trailpipe/core/trail"
)

// buildPipeline wires fetch → cache → assemble from configuration. The
// returned cache store must be closed by the caller.
func buildPipeline(c *config.Config) (*pipeline.Pipeline, *cache.Store, error) {
	if c.Tumblr.APIKey == "" {
		return nil, nil, fmt.Errorf("tumblr.api_key is not set (config file or TRAILPIPE_TUMBLR_API_KEY)")
	}

	store, err := cache.New(c.Cache.Path, c.Cache.Expiry)
	if err != nil {
		return nil, nil, fmt.Errorf("opening post cache: %w", err)
	}

	fetcher := fetch.NewCached(fetch.New(c.Tumblr.APIKey, c.Tumblr.APIBase), store)
	normalizer := normalize.New()
	assembler := trail.New(extract.New(normalizer), normalizer, c.TrailWorkers)

	return pipeline.New(fetcher, assembler), store, nil
}
