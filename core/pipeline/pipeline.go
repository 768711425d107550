// Package pipeline wires the stages together:
// fetch → assemble → render → write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/gaurav-prasanna/trailpipe/core"
	"github.com/gaurav-prasanna/trailpipe/core/output"
	"github.com/gaurav-prasanna/trailpipe/core/trail"
)

// ErrNoRenderer is returned for render names whose format has no renderer.
var ErrNoRenderer = errors.New("no renderer for format")

// Pipeline turns a post reference into a normalized thread.
type Pipeline struct {
	fetcher   core.PostFetcher
	assembler *trail.Assembler
}

// New creates a Pipeline.
func New(fetcher core.PostFetcher, assembler *trail.Assembler) *Pipeline {
	return &Pipeline{fetcher: fetcher, assembler: assembler}
}

// Thread fetches a post and normalizes its trail.
func (p *Pipeline) Thread(ctx context.Context, blog, id string) (core.Thread, error) {
	res, err := p.fetcher.FetchPost(ctx, blog, id)
	if err != nil {
		return core.Thread{}, fmt.Errorf("fetch: %w", err)
	}
	thread, err := p.assembler.Thread(&res.Post, res.Blog)
	if err != nil {
		return core.Thread{}, fmt.Errorf("assemble: %w", err)
	}
	return thread, nil
}

// Render fetches, normalizes and renders one post.
func (p *Pipeline) Render(ctx context.Context, blog, id string, r core.Renderer) ([]byte, core.Thread, error) {
	thread, err := p.Thread(ctx, blog, id)
	if err != nil {
		return nil, core.Thread{}, err
	}
	data, err := r.Render(ctx, thread)
	if err != nil {
		return nil, core.Thread{}, fmt.Errorf("render: %w", err)
	}
	return data, thread, nil
}

// Store produces renders on demand and keeps them in a render directory.
type Store struct {
	pipeline  *Pipeline
	writer    *output.Writer
	renderers map[string]core.Renderer // by extension

	// Concurrent requests for the same name share one render.
	group singleflight.Group

	// Timeout bounds a shared render. It runs apart from any one caller's
	// context so a disconnecting client does not fail the others.
	Timeout time.Duration
}

// DefaultRenderTimeout is the Store timeout unless set otherwise.
const DefaultRenderTimeout = 30 * time.Second

// NewStore creates a Store. Renderers are keyed by their Extension.
func NewStore(p *Pipeline, w *output.Writer, renderers ...core.Renderer) *Store {
	s := &Store{
		pipeline:  p,
		writer:    w,
		renderers: make(map[string]core.Renderer, len(renderers)),
		Timeout:   DefaultRenderTimeout,
	}
	for _, r := range renderers {
		s.renderers[r.Extension()] = r
	}
	return s
}

// Ensure returns the path of the render named n, producing it first when
// it does not exist or force is set.
func (s *Store) Ensure(ctx context.Context, n output.Name, force bool) (string, error) {
	r, ok := s.renderers[n.Ext]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrNoRenderer, n.Ext)
	}

	if !force && s.writer.Exists(n) {
		return s.writer.Path(n), nil
	}

	ch := s.group.DoChan(n.String(), func() (any, error) {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
		defer cancel()
		data, _, err := s.pipeline.Render(renderCtx, n.Blog, n.PostID, r)
		if err != nil {
			return "", err
		}
		path, err := s.writer.Write(n, data)
		if err != nil {
			return "", err
		}
		log.Info().Str("render", n.String()).Int("bytes", len(data)).Msg("Rendered post")
		return path, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Prune removes renders older than the given age.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	return s.writer.Prune(maxAge)
}
