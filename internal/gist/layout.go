package gist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileTarget is the planned output of one gist file.
type FileTarget struct {
	Key    string `json:"key"`     // key in Gist.Files
	Name   string `json:"name"`    // sanitized, collision-free file name
	RawURL string `json:"raw_url"` // remote content address
}

// Target is the planned output directory of one gist.
type Target struct {
	GistID      string       `json:"gist_id"`
	Description string       `json:"description,omitempty"`
	Dir         string       `json:"dir"` // directory name relative to the output root
	Files       []FileTarget `json:"files"`
}

// PlanOptions controls name derivation and collision handling.
type PlanOptions struct {
	MaxNameLength int

	// Overwrite keeps colliding names as-is (last write wins) instead of
	// disambiguating them.
	Overwrite bool

	// Reserved names are never used as gist directories, under either
	// policy. A gist that would take one is disambiguated as a collision.
	Reserved []string
}

// Plan derives the directory and file names for every gist, in input order.
//
// With Overwrite unset, the first gist to claim a directory name keeps it;
// later claimants get "<name>_<id>" and then a numeric suffix. Claims are
// compared case-insensitively. File names within one gist follow the same
// rule with numeric suffixes before the extension.
func Plan(gists []Gist, opts PlanOptions) []Target {
	dirs := newClaims()
	for _, name := range opts.Reserved {
		dirs.take(name)
	}
	targets := make([]Target, 0, len(gists))

	for _, g := range gists {
		base := DirName(g.DisplayName(), opts.MaxNameLength)
		if base == "" {
			base = DirName(g.ID, opts.MaxNameLength)
		}
		if base == "" {
			base = "gist"
		}

		dir := base
		if !opts.Overwrite || dirs.taken(base) {
			dir = dirs.claimDir(base, DirName(g.ID, opts.MaxNameLength))
		}

		t := Target{
			GistID:      g.ID,
			Description: g.Description,
			Dir:         dir,
		}

		files := newClaims()
		for _, key := range g.FileKeys() {
			f := g.Files[key]
			name := FileName(f.Name(key), opts.MaxNameLength)
			if !opts.Overwrite {
				name = files.claimFile(name)
			}
			t.Files = append(t.Files, FileTarget{Key: key, Name: name, RawURL: f.RawURL})
		}

		targets = append(targets, t)
	}

	return targets
}

// claims tracks taken names case-insensitively.
type claims map[string]bool

func newClaims() claims {
	return make(claims)
}

func (c claims) take(name string) bool {
	k := strings.ToLower(name)
	if c[k] {
		return false
	}
	c[k] = true
	return true
}

func (c claims) taken(name string) bool {
	return c[strings.ToLower(name)]
}

func (c claims) claimDir(base, id string) string {
	if c.take(base) {
		return base
	}
	candidate := base
	if id != "" && !strings.EqualFold(id, base) {
		candidate = base + "_" + id
		if c.take(candidate) {
			return candidate
		}
	}
	for n := 2; ; n++ {
		next := fmt.Sprintf("%s_%d", candidate, n)
		if c.take(next) {
			return next
		}
	}
}

func (c claims) claimFile(name string) string {
	if c.take(name) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		next := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if c.take(next) {
			return next
		}
	}
}
