package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/trailpipe/core/cache"
	"github.com/gaurav-prasanna/trailpipe/core/output"
	"github.com/gaurav-prasanna/trailpipe/core/pipeline"
	"github.com/gaurav-prasanna/trailpipe/core/render"
	"github.com/gaurav-prasanna/trailpipe/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve link-preview cards and renders for Tumblr posts",
	Long: `Serve answers /{blog}/{id} with a page carrying OpenGraph and Twitter card
metadata for the post. When renders are enabled, threads that do not fit a
text card are screenshotted and served from /renders/.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	p, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var renders *pipeline.Store
	if cfg.Renders.Enable {
		writer, err := output.New(cfg.Renders.Path)
		if err != nil {
			return fmt.Errorf("initializing render directory: %w", err)
		}
		browser := render.NewBrowser(cfg.Renders.Headless)
		defer browser.Close()
		renders = pipeline.NewStore(p, writer,
			render.NewPNGRenderer(browser),
			render.NewHTMLRenderer(),
			render.NewJSONRenderer(),
			render.NewMarkdownRenderer(),
			render.NewPDFRenderer(),
		)
		renders.Timeout = cfg.Renders.Timeout
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cache.PruneSchedule, func() { prune(store, renders) }); err != nil {
		return fmt.Errorf("scheduling prune job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// A nil *pipeline.Store must not become a non-nil RenderSource.
	var srv *server.Server
	if renders != nil {
		srv = server.New(cfg, p, renders)
	} else {
		srv = server.New(cfg, p, nil)
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("renders", cfg.Renders.Enable).Msg("Listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// prune drops expired cache rows and renders older than the cache expiry.
// renders is nil when renders are disabled.
func prune(store *cache.Store, renders *pipeline.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rows, err := store.Prune(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Pruning post cache failed")
	}
	files := 0
	if renders != nil {
		if files, err = renders.Prune(cfg.Cache.Expiry); err != nil {
			log.Warn().Err(err).Msg("Pruning renders failed")
		}
	}
	log.Info().Int64("cache_rows", rows).Int("renders", files).Msg("Pruned")
}
