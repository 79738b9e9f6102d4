package index

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/gistdl/internal/gist"
)

// FileName is the name of the index written at the output root.
const FileName = "index.html"

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Entry is one gist directory in the index.
type Entry struct {
	GistID      string
	Dir         string
	DirHref     string
	HTMLURL     string
	Public      bool
	UpdatedAt   time.Time
	Description template.HTML // rendered Markdown
	Files       []FileLink
}

// FileLink is a relative link to a downloaded file.
type FileLink struct {
	Name string
	Href string
}

type pageData struct {
	Title       string
	GeneratedAt time.Time
	Entries     []Entry
}

// RenderMarkdown converts a gist description to HTML.
// goldmark escapes raw HTML by default, so descriptions cannot inject markup.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// EntriesFrom pairs gists with their planned targets. gist.Plan keeps input
// order, so targets[i] belongs to gists[i].
func EntriesFrom(gists []gist.Gist, targets []gist.Target) []Entry {
	entries := make([]Entry, 0, len(targets))
	for i, t := range targets {
		e := Entry{
			GistID:  t.GistID,
			Dir:     t.Dir,
			DirHref: url.PathEscape(t.Dir),
		}
		if i < len(gists) && gists[i].ID == t.GistID {
			g := gists[i]
			e.HTMLURL = g.HTMLURL
			e.Public = g.Public
			e.UpdatedAt = g.UpdatedAt
		}
		if t.Description != "" {
			if html, err := RenderMarkdown(t.Description); err == nil {
				e.Description = html
			}
		}
		for _, f := range t.Files {
			e.Files = append(e.Files, FileLink{
				Name: f.Name,
				Href: url.PathEscape(t.Dir) + "/" + url.PathEscape(f.Name),
			})
		}
		entries = append(entries, e)
	}
	return entries
}

// Write renders entries to root/index.html and returns the path written.
func Write(root string, entries []Entry) (string, error) {
	var buf bytes.Buffer
	data := pageData{
		Title:       "Gists",
		GeneratedAt: time.Now(),
		Entries:     entries,
	}
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render index: %w", err)
	}

	path := filepath.Join(root, FileName)
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	return path, nil
}
