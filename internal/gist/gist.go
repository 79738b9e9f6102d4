package gist

import (
	"sort"
	"time"
)

// Gist is one remote snippet collection as returned by the GitHub gists API.
type Gist struct {
	// ID uniquely identifies the gist
	ID string `json:"id"`

	// Description is the optional human-readable description (null becomes "")
	Description string `json:"description"`

	// Public is false for secret gists
	Public bool `json:"public"`

	// HTMLURL is the gist's page on github.com
	HTMLURL string `json:"html_url"`

	// Files maps file name to file entry; keys are unique within a gist
	Files map[string]File `json:"files"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File is a single file entry of a gist.
type File struct {
	Filename string `json:"filename"`
	RawURL   string `json:"raw_url"`
	Size     int64  `json:"size"`
	Language string `json:"language,omitempty"`
	Type     string `json:"type,omitempty"`
}

// DisplayName returns the description, or the id when the description is empty.
func (g Gist) DisplayName() string {
	if g.Description != "" {
		return g.Description
	}
	return g.ID
}

// FileKeys returns the keys of Files in sorted order so that planning and
// logging are deterministic regardless of map iteration order.
func (g Gist) FileKeys() []string {
	keys := make([]string, 0, len(g.Files))
	for k := range g.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Name returns the file's own name, falling back to its map key.
func (f File) Name(key string) string {
	if f.Filename != "" {
		return f.Filename
	}
	return key
}
