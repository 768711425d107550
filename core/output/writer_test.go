package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	cases := []struct {
		in   string
		want Name
	}{
		{"staff-123.png", Name{Blog: "staff", PostID: "123", Ext: ".png"}},
		{"my-blog-2-456.html", Name{Blog: "my-blog-2", PostID: "456", Ext: ".html"}},
		{"staff-123-unroll.png", Name{Blog: "staff", PostID: "123", Modifiers: []string{"unroll"}, Ext: ".png"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFilename(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}

	for _, bad := range []string{"staff.png", "staff-123.exe", "../staff-1.png", "Staff-1.png", "-1.png", "staff-1-x2.png"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseFilename(bad)
			require.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	n := Name{Blog: "staff", PostID: "1", Ext: ".html"}
	assert.False(t, w.Exists(n))

	path, err := w.Write(n, []byte("<p>x</p>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "staff-1.html"), path)
	assert.True(t, w.Exists(n))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(data))

	path, err = w.WriteAll("staff", "2", []byte("md"), ".md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "staff", "2.md"), path)
}

func TestWriter_Prune(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	oldPath, err := w.Write(Name{Blog: "a", PostID: "1", Ext: ".png"}, []byte("old"))
	require.NoError(t, err)
	_, err = w.Write(Name{Blog: "a", PostID: "2", Ext: ".png"}, []byte("new"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	n, err := w.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, filepath.Join(dir, "a-2.png"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}
