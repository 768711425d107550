// Package output handles file naming and writing for rendered posts.
// Renders are named {blog}-{id}[-{modifier}...].{ext}, the same names the
// server exposes under /renders/. In --all mode, files are grouped by blog:
// {blog}/{id}.{ext}.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidName is returned for filenames that do not name a render.
var ErrInvalidName = errors.New("invalid render filename")

// extensions are the render formats the store serves.
var extensions = map[string]bool{
	".png": true, ".html": true, ".json": true, ".md": true, ".pdf": true,
}

var (
	blogNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	digitsRegex   = regexp.MustCompile(`^[0-9]+$`)
	modifierRegex = regexp.MustCompile(`^[a-z]+$`)
)

// Name identifies one rendered artifact.
type Name struct {
	Blog      string
	PostID    string
	Modifiers []string
	Ext       string // with leading dot
}

// String returns the flat filename for n.
func (n Name) String() string {
	parts := append([]string{n.Blog, n.PostID}, n.Modifiers...)
	return strings.Join(parts, "-") + n.Ext
}

// ParseFilename validates a render filename and splits it into its parts.
// The post id is the last all-digit segment, since blog names may contain
// hyphens and digits.
func ParseFilename(filename string) (Name, error) {
	if filename != filepath.Base(filename) {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !extensions[ext] {
		return Name{}, fmt.Errorf("%w: unsupported extension %q", ErrInvalidName, ext)
	}
	parts := strings.Split(strings.TrimSuffix(filename, filepath.Ext(filename)), "-")

	idIdx := -1
	for i := len(parts) - 1; i > 0; i-- {
		if digitsRegex.MatchString(parts[i]) {
			idIdx = i
			break
		}
	}
	if idIdx == -1 {
		return Name{}, fmt.Errorf("%w: no post id in %q", ErrInvalidName, filename)
	}

	blog := strings.Join(parts[:idIdx], "-")
	if !blogNameRegex.MatchString(blog) {
		return Name{}, fmt.Errorf("%w: bad blog name %q", ErrInvalidName, blog)
	}
	var mods []string
	for _, m := range parts[idIdx+1:] {
		if !modifierRegex.MatchString(m) {
			return Name{}, fmt.Errorf("%w: bad modifier %q", ErrInvalidName, m)
		}
		mods = append(mods, m)
	}

	return Name{Blog: blog, PostID: parts[idIdx], Modifiers: mods, Ext: ext}, nil
}

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	// Ensure the output directory exists.
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Path returns where the render named n lives.
func (w *Writer) Path(n Name) string {
	return filepath.Join(w.OutputDir, n.String())
}

// Exists reports whether the render named n has been written.
func (w *Writer) Exists(n Name) bool {
	info, err := os.Stat(w.Path(n))
	return err == nil && !info.IsDir()
}

// Write stores data under the flat render name. The file is written to a
// temporary name first so concurrent readers never see a partial render.
func (w *Writer) Write(n Name, data []byte) (string, error) {
	path := w.Path(n)
	tmp, err := os.CreateTemp(w.OutputDir, ".render-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// WriteAll writes output for --all mode, grouping renders by blog.
// Example: staff/123456.png
func (w *Writer) WriteAll(blog, postID string, data []byte, ext string) (string, error) {
	dir := filepath.Join(w.OutputDir, sanitize(blog))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	fullPath := filepath.Join(dir, sanitize(postID)+ext)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// Prune removes renders older than maxAge and reports how many were removed.
func (w *Writer) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.OutputDir)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", w.OutputDir, err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := ParseFilename(e.Name()); err != nil {
			continue // not ours
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.OutputDir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// sanitize replaces characters outside [a-zA-Z0-9-] with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
