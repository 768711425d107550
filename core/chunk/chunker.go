// Package chunk splits thread text into word-sized chunks for embedding.
// Words stand in for tokens. Chunks never span two trail entries, so every
// chunk belongs to exactly one blog.
package chunk

import (
	"strings"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// Chunk is one piece of one trail entry.
type Chunk struct {
	BlogName string
	Entry    int // index into the trail
	Text     string
}

// Chunker splits text into fixed-size word chunks.
type Chunker struct {
	ChunkSize int // number of words per chunk
}

// New creates a Chunker with the given chunk size.
// Defaults to 512 if chunkSize <= 0.
func New(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	return &Chunker{ChunkSize: chunkSize}
}

// Split splits text into slices of at most ChunkSize words joined by spaces.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < len(words); i += c.ChunkSize {
		end := min(i+c.ChunkSize, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// Trail chunks every entry's Markdown in trail order. Entries without text
// produce no chunks.
func (c *Chunker) Trail(trail core.Trail) []Chunk {
	var out []Chunk
	for i, e := range trail {
		for _, text := range c.Split(e.Content) {
			out = append(out, Chunk{BlogName: e.BlogName, Entry: i, Text: text})
		}
	}
	return out
}
