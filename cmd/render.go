// Package cmd: render command.
// Orchestrates the pipeline for the command line:
// fetch → assemble → render → write.
//
// It handles flag validation, renderer selection, and --all mode.
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/trailpipe/core"
	"github.com/gaurav-prasanna/trailpipe/core/output"
	"github.com/gaurav-prasanna/trailpipe/core/pipeline"
	"github.com/gaurav-prasanna/trailpipe/core/render"
	"github.com/gaurav-prasanna/trailpipe/crawl"
)

// Flag variables.
var (
	flagAll        bool
	flagPDF        bool
	flagMarkdown   bool
	flagJSON       bool
	flagHTML       bool
	flagPNG        bool
	flagEmbeddings bool
	flagModel      string
	flagChunkSize  int
	flagOutputDir  string
)

var renderCmd = &cobra.Command{
	Use:   "render <post-url|blog/id>...",
	Short: "Render posts to the specified output format",
	Long: `Render fetches a Tumblr post, normalizes its reblog trail and writes it in
the specified output format (Markdown, JSON, PDF, HTML, PNG or Embeddings).

Examples:
  trailpipe render https://www.tumblr.com/staff/123456789 --markdown
  trailpipe render staff/123456789 --json --output_dir ./out
  trailpipe render staff --all --pdf
  trailpipe render staff/123456789 --embeddings --model nomic-embed-text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	// Mode flags.
	renderCmd.Flags().BoolVar(&flagAll, "all", false, "Treat each argument as a blog and render its discovered posts")

	// Output format flags (mutually exclusive).
	renderCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	renderCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	renderCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	renderCmd.Flags().BoolVar(&flagHTML, "html", false, "Output a standalone HTML page")
	renderCmd.Flags().BoolVar(&flagPNG, "png", false, "Output a PNG screenshot (needs Chrome)")
	renderCmd.Flags().BoolVar(&flagEmbeddings, "embeddings", false, "Output embeddings")

	// Embedding-specific flags.
	renderCmd.Flags().StringVar(&flagModel, "model", "", "Embedding model (default: embeddings.model)")
	renderCmd.Flags().IntVar(&flagChunkSize, "chunk_size", 0, "Words per chunk for embeddings (default: embeddings.chunk_size)")

	// Output directory.
	renderCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}

	renderer, closeRenderer := selectRenderer()
	defer closeRenderer()

	p, store, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	ctx := cmd.Context()

	if flagAll {
		for _, arg := range args {
			if err := runAll(ctx, arg, p, renderer, writer); err != nil {
				return err
			}
		}
		return nil
	}

	refs := make([]crawl.PostRef, 0, len(args))
	for _, arg := range args {
		ref, err := crawl.ParsePostURL(arg)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	var failed int
	for _, ref := range refs {
		if err := runOne(ctx, ref, p, renderer, writer); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", ref, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d posts failed", failed, len(refs))
	}
	return nil
}

// runOne renders a single post to a flat file.
func runOne(ctx context.Context, ref crawl.PostRef, p *pipeline.Pipeline, renderer core.Renderer, writer *output.Writer) error {
	data, _, err := p.Render(ctx, ref.Blog, ref.ID, renderer)
	if err != nil {
		return err
	}

	path, err := writer.Write(output.Name{Blog: ref.Blog, PostID: ref.ID, Ext: renderer.Extension()}, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}

// runAll discovers a blog's posts and renders each into {blog}/{id}.{ext}.
func runAll(ctx context.Context, arg string, p *pipeline.Pipeline, renderer core.Renderer, writer *output.Writer) error {
	blog := blogFromArg(arg)
	fmt.Fprintf(os.Stdout, "Discovering posts from %s...\n", blog)

	refs, err := crawl.NewDiscoverer().DiscoverPosts(ctx, blog)
	if err != nil {
		return fmt.Errorf("discovering posts: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Found %d posts to process\n", len(refs))

	var errCount int
	for i, ref := range refs {
		fmt.Fprintf(os.Stdout, "[%d/%d] Processing %s\n", i+1, len(refs), ref)

		data, _, err := p.Render(ctx, ref.Blog, ref.ID, renderer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}

		path, err := writer.WriteAll(ref.Blog, ref.ID, data, renderer.Extension())
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Write error: %v\n", err)
			errCount++
			continue
		}
		fmt.Fprintf(os.Stdout, "  ✓ Written: %s\n", path)
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d posts failed\n", errCount, len(refs))
	}
	return nil
}

// blogFromArg accepts a bare blog name or a blog URL.
func blogFromArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if u, err := url.Parse(arg); err == nil && u.Host != "" {
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host == "tumblr.com" {
			first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
			return first
		}
		return strings.TrimSuffix(host, ".tumblr.com")
	}
	if ref, err := crawl.ParsePostURL(arg); err == nil {
		return ref.Blog
	}
	return strings.ToLower(strings.TrimSuffix(arg, ".tumblr.com"))
}

// validateFlags checks that exactly one output format is chosen.
func validateFlags() error {
	formatCount := 0
	for _, set := range []bool{flagPDF, flagMarkdown, flagJSON, flagHTML, flagPNG, flagEmbeddings} {
		if set {
			formatCount++
		}
	}

	if formatCount == 0 {
		return fmt.Errorf("exactly one output format is required: --pdf, --markdown, --json, --html, --png, or --embeddings")
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", formatCount)
	}

	if flagEmbeddings && flagModel == "" && cfg.Embeddings.Model == "" {
		return fmt.Errorf("--model is required when using --embeddings")
	}

	return nil
}

// selectRenderer creates the appropriate Renderer based on flags. The
// returned func releases anything the renderer holds.
func selectRenderer() (core.Renderer, func()) {
	switch {
	case flagMarkdown:
		return render.NewMarkdownRenderer(), func() {}
	case flagJSON:
		return render.NewJSONRenderer(), func() {}
	case flagHTML:
		return render.NewHTMLRenderer(), func() {}
	case flagPNG:
		browser := render.NewBrowser(cfg.Renders.Headless)
		return render.NewPNGRenderer(browser), browser.Close
	case flagEmbeddings:
		model, chunkSize := flagModel, flagChunkSize
		if model == "" {
			model = cfg.Embeddings.Model
		}
		if chunkSize <= 0 {
			chunkSize = cfg.Embeddings.ChunkSize
		}
		return render.NewEmbeddingsRenderer(model, chunkSize, cfg.Embeddings.URL), func() {}
	default: // --pdf
		return render.NewPDFRenderer(), func() {}
	}
}
