// Package config resolves trailpipe settings with precedence
// defaults < config file < environment (TRAILPIPE_*) < flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Option is one configuration key with its default and meaning.
type Option struct {
	Key     string
	Default any
	Comment string
}

// Options returns every configuration key trailpipe reads.
func Options() []Option {
	return []Option{
		{Key: "app_name", Default: "trailpipe", Comment: "Site name shown on embed cards"},
		{Key: "base_url", Default: "http://127.0.0.1:8080", Comment: "Public URL of the server, used in card and render links"},
		{Key: "http_addr", Default: ":8080", Comment: "Listen address for serve"},
		{Key: "motd", Default: "", Comment: "Appended to the oEmbed provider name"},
		{Key: "project_url", Default: "https://github.com/gaurav-prasanna/trailpipe", Comment: "Where / redirects to"},

		{Key: "tumblr.api_key", Default: "", Comment: "Tumblr API consumer key"},
		{Key: "tumblr.api_base", Default: "https://api.tumblr.com", Comment: "Tumblr API base URL"},

		{Key: "cache.path", Default: "cache/posts.db", Comment: "sqlite file for cached API responses"},
		{Key: "cache.expiry", Default: "24h", Comment: "How long a cached post stays fresh"},
		{Key: "cache.prune_schedule", Default: "@hourly", Comment: "cron schedule for removing stale cache rows and renders"},

		{Key: "renders.enable", Default: false, Comment: "Serve screenshot renders under /renders/"},
		{Key: "renders.path", Default: "renders", Comment: "Directory where renders are stored"},
		{Key: "renders.debug", Default: false, Comment: "Re-render on every request"},
		{Key: "renders.timeout", Default: "10s", Comment: "Upper bound for producing one render"},
		{Key: "renders.headless", Default: true, Comment: "Run Chrome headless"},

		{Key: "embeddings.url", Default: "http://localhost:11434/api/embeddings", Comment: "Ollama-compatible embeddings endpoint"},
		{Key: "embeddings.model", Default: "", Comment: "Embedding model"},
		{Key: "embeddings.chunk_size", Default: 512, Comment: "Words per embedded chunk"},

		{Key: "trail.workers", Default: 4, Comment: "Concurrent fragment extractions per post"},
		{Key: "log.level", Default: "info", Comment: "zerolog level: debug, info, warn, error"},
	}
}

// Config is the resolved configuration.
type Config struct {
	AppName    string
	BaseURL    string
	HTTPAddr   string
	MOTD       string
	ProjectURL string

	Tumblr struct {
		APIKey  string
		APIBase string
	}
	Cache struct {
		Path          string
		Expiry        time.Duration
		PruneSchedule string
	}
	Renders struct {
		Enable   bool
		Path     string
		Debug    bool
		Timeout  time.Duration
		Headless bool
	}
	Embeddings struct {
		URL       string
		Model     string
		ChunkSize int
	}
	TrailWorkers int
	LogLevel     string
}

// Load resolves configuration into v and returns it. If v has no config
// file set, config.yml is looked up in the working directory.
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	for _, o := range Options() {
		v.SetDefault(o.Key, o.Default)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("trailpipe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{
		AppName:      v.GetString("app_name"),
		BaseURL:      strings.TrimSuffix(v.GetString("base_url"), "/"),
		HTTPAddr:     v.GetString("http_addr"),
		MOTD:         v.GetString("motd"),
		ProjectURL:   v.GetString("project_url"),
		TrailWorkers: v.GetInt("trail.workers"),
		LogLevel:     v.GetString("log.level"),
	}
	c.Tumblr.APIKey = v.GetString("tumblr.api_key")
	c.Tumblr.APIBase = v.GetString("tumblr.api_base")
	c.Cache.Path = v.GetString("cache.path")
	c.Cache.Expiry = v.GetDuration("cache.expiry")
	c.Cache.PruneSchedule = v.GetString("cache.prune_schedule")
	c.Renders.Enable = v.GetBool("renders.enable")
	c.Renders.Path = v.GetString("renders.path")
	c.Renders.Debug = v.GetBool("renders.debug")
	c.Renders.Timeout = v.GetDuration("renders.timeout")
	c.Renders.Headless = v.GetBool("renders.headless")
	c.Embeddings.URL = v.GetString("embeddings.url")
	c.Embeddings.Model = v.GetString("embeddings.model")
	c.Embeddings.ChunkSize = v.GetInt("embeddings.chunk_size")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL))
	}
	if c.Cache.Expiry <= 0 {
		errs = append(errs, errors.New("cache.expiry must be greater than 0"))
	}
	if _, err := cron.ParseStandard(c.Cache.PruneSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cache.prune_schedule is invalid: %v", err))
	}
	if c.Renders.Timeout <= 0 {
		errs = append(errs, errors.New("renders.timeout must be greater than 0"))
	}
	if c.Renders.Enable && c.Renders.Path == "" {
		errs = append(errs, errors.New("renders.path is required when renders are enabled"))
	}
	if c.TrailWorkers <= 0 {
		errs = append(errs, errors.New("trail.workers must be greater than 0"))
	}
	return errors.Join(errs...)
}
