package gist

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the rune bound applied by Sanitize when maxLength <= 0.
const DefaultMaxLength = 100

// TruncationSuffix is appended to names cut at the length bound.
const TruncationSuffix = "_truncated"

// MaxNameBytes bounds the UTF-8 length of a sanitized name, suffix included.
// It stays below the common 255-byte NAME_MAX with room for the "_<id>" and
// "_<n>" collision suffixes added by Plan.
const MaxNameBytes = 200

var (
	// whitespaceRegex matches runs of ASCII and Unicode whitespace
	whitespaceRegex = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{FEFF}]+`)

	// illegalRegex matches runs of characters not allowed in file names on common filesystems
	illegalRegex = regexp.MustCompile(`[<>:"/\\|?*]+`)

	// decorationRegex matches exclamation marks and bullet glyphs
	decorationRegex = regexp.MustCompile(`[!•‣◦⁃∙]+`)

	spaceRunRegex  = regexp.MustCompile(` {2,}`)
	separatorRegex = regexp.MustCompile(`[-_]+`)
	underscoreRun  = regexp.MustCompile(`_{2,}`)
)

// Clean applies the character rules of Sanitize without the length bound:
//  1. collapse whitespace runs to one space
//  2. replace runs of < > : " / \ | ? * with one underscore
//  3. drop exclamation marks and bullet glyphs
//  4. collapse runs of hyphens and underscores to one underscore
//  5. trim surrounding whitespace
//
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	s := whitespaceRegex.ReplaceAllString(raw, " ")
	s = illegalRegex.ReplaceAllString(s, "_")
	s = decorationRegex.ReplaceAllString(s, "")
	// Removing a glyph between two spaces leaves a double space behind
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = separatorRegex.ReplaceAllString(s, "_")
	return strings.TrimSpace(s)
}

// Sanitize derives a filesystem-safe name from raw. It is pure and total.
// Results longer than maxLength runes are cut to maxLength runes and suffixed
// with TruncationSuffix, so the output may exceed maxLength by len(TruncationSuffix).
// Results over MaxNameBytes are cut at a rune boundary the same way, so a
// multibyte name never exceeds MaxNameBytes.
func Sanitize(raw string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	s := Clean(raw)
	if utf8.RuneCountInString(s) > maxLength || len(s) > MaxNameBytes {
		s = clip(s, maxLength, MaxNameBytes-len(TruncationSuffix)) + TruncationSuffix
	}
	return s
}

// clip returns the longest prefix of s with at most maxRunes runes and
// maxBytes bytes.
func clip(s string, maxRunes, maxBytes int) string {
	end := 0
	for runes := 0; runes < maxRunes && end < len(s); runes++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		if end+size > maxBytes {
			break
		}
		end += size
	}
	return s[:end]
}

// DirName derives a gist directory name: Sanitize with spaces mapped to
// underscores. Empty and dot-only results are returned as "" so the caller
// can fall back to the gist id.
func DirName(raw string, maxLength int) string {
	s := Sanitize(raw, maxLength)
	s = strings.ReplaceAll(s, " ", "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	if isDotName(s) {
		return ""
	}
	return s
}

// FileName derives a file name inside a gist directory.
// Empty results become "unnamed"; "." and ".." become "_".
func FileName(raw string, maxLength int) string {
	s := Sanitize(raw, maxLength)
	switch {
	case s == "":
		return "unnamed"
	case isDotName(s):
		return "_"
	}
	return s
}

func isDotName(s string) bool {
	return s == "." || s == ".."
}
