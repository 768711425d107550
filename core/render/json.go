// Package render: JSON renderer.
// Emits the normalized thread together with a few structural counts.
package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/trailpipe/core"
)

// ThreadStructure holds counts derived from the trail.
type ThreadStructure struct {
	Entries int `json:"entries"`
	Images  int `json:"images"`
	Videos  int `json:"videos"`
	Audio   int `json:"audio"`
}

// ThreadJSON is the complete JSON output for a single post.
type ThreadJSON struct {
	Meta      core.PostMeta   `json:"meta"`
	Trail     core.Trail      `json:"trail"`
	Structure ThreadStructure `json:"structure"`
}

// JSONRenderer produces structured JSON output from a thread.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts the thread into indented JSON.
func (r *JSONRenderer) Render(_ context.Context, thread core.Thread) ([]byte, error) {
	out := ThreadJSON{
		Meta:      thread.Meta,
		Trail:     thread.Trail,
		Structure: countStructure(thread.Trail),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

func countStructure(trail core.Trail) ThreadStructure {
	s := ThreadStructure{Entries: len(trail)}
	for _, e := range trail {
		s.Images += len(e.Images)
		if e.Video != nil {
			s.Videos++
		}
		if e.Type == core.EntryAudio {
			s.Audio++
		}
	}
	return s
}
