package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/gistdl/internal/gist"
)

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("Some **bold** notes")
	require.NoError(t, err)
	require.Contains(t, string(html), "<strong>bold</strong>")
}

func TestRenderMarkdown_EscapesRawHTML(t *testing.T) {
	html, err := RenderMarkdown(`<script>alert(1)</script>`)
	require.NoError(t, err)
	require.NotContains(t, string(html), "<script>")
}

func TestEntriesFrom(t *testing.T) {
	gists := []gist.Gist{
		{ID: "abc123", Public: true, HTMLURL: "https://gist.github.com/abc123"},
		{ID: "def456", Description: "Hello World"},
	}
	targets := []gist.Target{
		{GistID: "abc123", Dir: "abc123", Files: []gist.FileTarget{{Name: "a b.txt"}}},
		{GistID: "def456", Dir: "Hello_World", Description: "Hello World"},
	}

	entries := EntriesFrom(gists, targets)
	require.Len(t, entries, 2)
	require.True(t, entries[0].Public)
	require.Equal(t, "https://gist.github.com/abc123", entries[0].HTMLURL)
	require.Equal(t, "abc123/a%20b.txt", entries[0].Files[0].Href)
	require.Empty(t, entries[0].Description)
	require.Contains(t, string(entries[1].Description), "Hello World")
}

func TestWrite(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	entries := EntriesFrom(
		[]gist.Gist{{ID: "g1", Description: "*notes*"}},
		[]gist.Target{{GistID: "g1", Dir: "notes", Description: "*notes*",
			Files: []gist.FileTarget{{Name: "main.go"}}}},
	)

	path, err := Write(root, entries)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, FileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)
	require.Contains(t, page, "<em>notes</em>")
	require.Contains(t, page, `href="notes/main.go"`)
	require.True(t, strings.Contains(page, "secret"), "non-public gists are labelled secret")
}
