package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/trailpipe/config"
	"github.com/gaurav-prasanna/trailpipe/core/render"
)

func resetFlags(t *testing.T) {
	t.Helper()
	flagPDF, flagMarkdown, flagJSON, flagHTML, flagPNG, flagEmbeddings = false, false, false, false, false, false
	flagModel, flagChunkSize = "", 0
	cfg = &config.Config{}
	cfg.Embeddings.ChunkSize = 512
	cfg.Embeddings.URL = render.DefaultOllamaURL
	t.Cleanup(func() { cfg = nil })
}

func TestValidateFlags(t *testing.T) {
	resetFlags(t)
	require.ErrorContains(t, validateFlags(), "exactly one output format")

	flagMarkdown, flagJSON = true, true
	require.ErrorContains(t, validateFlags(), "only one output format")

	flagJSON = false
	require.NoError(t, validateFlags())

	flagMarkdown, flagEmbeddings = false, true
	require.ErrorContains(t, validateFlags(), "--model is required")

	cfg.Embeddings.Model = "nomic-embed-text"
	require.NoError(t, validateFlags())
}

func TestSelectRenderer(t *testing.T) {
	cases := []struct {
		set  *bool
		want string
	}{
		{&flagMarkdown, ".md"},
		{&flagJSON, ".json"},
		{&flagHTML, ".html"},
		{&flagPNG, ".png"},
		{&flagPDF, ".pdf"},
	}
	for _, tc := range cases {
		resetFlags(t)
		*tc.set = true
		r, release := selectRenderer()
		assert.Equal(t, tc.want, r.Extension())
		release()
	}

	resetFlags(t)
	flagEmbeddings = true
	flagModel = "m"
	r, release := selectRenderer()
	defer release()
	emb, ok := r.(*render.EmbeddingsRenderer)
	require.True(t, ok)
	assert.Equal(t, "m", emb.Model)
	assert.Equal(t, 512, emb.ChunkSize)
}

func TestBlogFromArg(t *testing.T) {
	for in, want := range map[string]string{
		"staff":                                "staff",
		"staff.tumblr.com":                     "staff",
		"https://staff.tumblr.com/":            "staff",
		"https://www.tumblr.com/staff":         "staff",
		"https://www.tumblr.com/staff/123/x":   "staff",
		"staff/123":                            "staff",
		"https://staff.tumblr.com/post/123/xy": "staff",
	} {
		assert.Equal(t, want, blogFromArg(in), in)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["render"])
	assert.True(t, names["serve"])
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}
