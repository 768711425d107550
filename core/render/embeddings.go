// Package render: Embeddings renderer.
// Chunks each trail entry and calls an Ollama-compatible embedding API for
// each chunk. Output is a human-readable .embeddings.txt file.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gaurav-prasanna/trailpipe/core"
	"github.com/gaurav-prasanna/trailpipe/core/chunk"
)

const (
	// DefaultOllamaURL is the local Ollama embeddings endpoint.
	DefaultOllamaURL = "http://localhost:11434/api/embeddings"
	embeddingTimeout = 60 * time.Second
)

// EmbeddingsRenderer generates embeddings from a thread's text.
type EmbeddingsRenderer struct {
	Model     string
	ChunkSize int
	URL       string
	client    *http.Client
}

// NewEmbeddingsRenderer creates an EmbeddingsRenderer. An empty endpoint
// selects DefaultOllamaURL.
func NewEmbeddingsRenderer(model string, chunkSize int, endpoint string) *EmbeddingsRenderer {
	if endpoint == "" {
		endpoint = DefaultOllamaURL
	}
	return &EmbeddingsRenderer{
		Model:     model,
		ChunkSize: chunkSize,
		URL:       endpoint,
		client:    &http.Client{Timeout: embeddingTimeout},
	}
}

// ollamaRequest is the request body for the Ollama embeddings API.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the response body from the Ollama embeddings API.
type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Render chunks the trail, embeds each chunk, and produces the
// .embeddings.txt output.
func (r *EmbeddingsRenderer) Render(ctx context.Context, thread core.Thread) ([]byte, error) {
	chunks := chunk.New(r.ChunkSize).Trail(thread.Trail)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content to embed")
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "# source: %s\n", thread.Meta.URL)
	fmt.Fprintf(&buf, "# model: %s\n", r.Model)
	fmt.Fprintf(&buf, "# chunk_size: %d\n\n", r.ChunkSize)

	for i, c := range chunks {
		embedding, err := r.embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i+1, err)
		}

		fmt.Fprintf(&buf, "--- chunk %d (%s, entry %d) ---\n", i+1, c.BlogName, c.Entry)
		fmt.Fprintf(&buf, "TEXT:\n%s\n\n", c.Text)

		vecStrs := make([]string, len(embedding))
		for j, v := range embedding {
			vecStrs[j] = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(&buf, "VECTOR:\n[%s]\n\n", strings.Join(vecStrs, ", "))
	}

	return []byte(buf.String()), nil
}

// Extension returns the file extension for embeddings output.
func (r *EmbeddingsRenderer) Extension() string {
	return ".embeddings.txt"
}

// embed calls the embedding API for a single text input.
func (r *EmbeddingsRenderer) embed(ctx context.Context, text string) ([]float64, error) {
	bodyBytes, err := json.Marshal(ollamaRequest{Model: r.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}

	return ollamaResp.Embedding, nil
}
