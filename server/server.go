// Package server serves link-preview pages for Tumblr posts, the renders
// they point at, and the matching oEmbed documents.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/trailpipe/config"
	"github.com/gaurav-prasanna/trailpipe/core"
	"github.com/gaurav-prasanna/trailpipe/core/card"
	"github.com/gaurav-prasanna/trailpipe/core/fetch"
	"github.com/gaurav-prasanna/trailpipe/core/output"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ThreadSource produces the normalized thread for a post.
type ThreadSource interface {
	Thread(ctx context.Context, blog, id string) (core.Thread, error)
}

// RenderSource produces render files on demand.
type RenderSource interface {
	Ensure(ctx context.Context, n output.Name, force bool) (string, error)
}

// Server holds the HTTP handlers.
type Server struct {
	cfg     *config.Config
	threads ThreadSource
	renders RenderSource // nil when renders are disabled
}

// New creates a Server. renders may be nil.
func New(cfg *config.Config, threads ThreadSource, renders RenderSource) *Server {
	return &Server{cfg: cfg, threads: threads, renders: renders}
}

// Router returns an http.Handler with registered routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.cfg.ProjectURL, http.StatusFound)
	})
	mux.HandleFunc("GET /oembed.json", s.handleOEmbed)
	mux.HandleFunc("GET /renders/{filename}", s.handleRender)
	mux.HandleFunc("GET /{blog}/{id}", s.handleEmbed)
	mux.HandleFunc("GET /{blog}/{id}/{slug}", s.handleEmbed)
	return logRequests(mux)
}

type cardPage struct {
	AppName   string
	SiteName  string
	OEmbedURL string
	Card      card.Card
}

type errorPage struct {
	AppName string
	Message string
	PostURL string
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	blog := strings.ToLower(r.PathValue("blog"))
	id := r.PathValue("id")
	if !isDigits(id) {
		http.NotFound(w, r)
		return
	}

	postURL := "https://www.tumblr.com/" + blog + "/" + id
	if slug := r.PathValue("slug"); slug != "" {
		postURL += "/" + url.PathEscape(slug)
	}
	logger := log.With().Str("blog", blog).Str("id", id).Logger()
	logger.Info().Msg("Parsing post")

	thread, err := s.threads.Thread(r.Context(), blog, id)
	if err != nil {
		status, msg := errorStatus(err)
		logger.Warn().Err(err).Int("status", status).Msg("Post failed")
		s.renderError(w, status, msg, postURL)
		return
	}

	if _, ok := r.URL.Query()["video"]; ok {
		for _, e := range thread.Trail {
			if e.Video != nil {
				http.Redirect(w, r, e.Video.URL, http.StatusFound)
				return
			}
		}
	}

	c := card.Build(thread, postURL)
	if c.NeedsRender && s.renders != nil {
		// The render itself is produced when the unfurler fetches the image.
		name := output.Name{Blog: blog, PostID: id, Ext: ".png"}
		c.UseRender(s.cfg.BaseURL+"/renders/"+name.String(), s.cfg.BaseURL+"/"+blog+"/"+id+"?video")
	}
	logger.Info().Bool("rendered", c.Rendered).Str("card", c.Type).Msg("Parsed post")

	page := cardPage{
		AppName:   s.cfg.AppName,
		SiteName:  s.siteName(c),
		OEmbedURL: s.oembedURL(c),
		Card:      c,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "card.html", page); err != nil {
		logger.Error().Err(err).Msg("Executing card template")
	}
}

func (s *Server) siteName(c card.Card) string {
	name := s.cfg.AppName
	if c.MiniHeader != "" {
		name += " - " + c.MiniHeader
	}
	return name
}

func (s *Server) oembedURL(c card.Card) string {
	q := url.Values{}
	q.Set("ttype", "link")
	q.Set("op", c.Header)
	q.Set("desc", c.MiniHeader)
	q.Set("link", c.PostURL)
	return s.cfg.BaseURL + "/oembed.json?" + q.Encode()
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.renders == nil || !s.cfg.Renders.Enable {
		http.NotFound(w, r)
		return
	}
	name, err := output.ParseFilename(r.PathValue("filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Renders.Timeout)
	defer cancel()

	path, err := s.renders.Ensure(ctx, name, s.cfg.Renders.Debug)
	if err != nil {
		log.Warn().Err(err).Str("render", name.String()).Msg("Render failed")
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

type oembed struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorURL    string `json:"author_url,omitempty"`
}

func (s *Server) handleOEmbed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := oembed{
		Type:         q.Get("ttype"),
		Version:      "1.0",
		ProviderName: s.cfg.AppName,
		ProviderURL:  s.cfg.ProjectURL,
		Title:        q.Get("op"),
		AuthorName:   q.Get("desc"),
		AuthorURL:    q.Get("link"),
	}
	if s.cfg.MOTD != "" {
		out.ProviderName += " - " + s.cfg.MOTD
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg, postURL string) {
	page := errorPage{AppName: s.cfg.AppName, Message: msg}
	// Locked blogs are viewable on Tumblr for logged-in users.
	if status == http.StatusForbidden {
		page.PostURL = postURL
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, "error.html", page); err != nil {
		log.Error().Err(err).Msg("Executing error template")
	}
}

// errorStatus maps pipeline errors to a status code and a message for the
// error page.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, fetch.ErrBlogLocked):
		return http.StatusForbidden, "This blog is only viewable on Tumblr."
	case errors.Is(err, fetch.ErrPostNotFound):
		return http.StatusNotFound, "Post not found."
	case errors.Is(err, fetch.ErrRateLimited):
		return http.StatusTooManyRequests, "Rate limited by Tumblr, try again later."
	case errors.Is(err, core.ErrShapeMismatch), errors.Is(err, core.ErrUnsupportedType):
		return http.StatusUnprocessableEntity, "unable to render this post"
	default:
		return http.StatusBadGateway, "Could not reach Tumblr."
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}
