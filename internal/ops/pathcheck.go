package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/gistdl/internal/errors"
)

// ValidateOutputRoot checks the output root and returns it as an absolute,
// cleaned path. The root may not exist yet; if it exists it must be a directory.
func ValidateOutputRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.NewInvalidRequest("output directory is required")
	}

	absPath, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid output directory: %v", err))
	}

	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("output path is not a directory: %s", absPath))
	}

	return absPath, nil
}

// withinRoot reports whether path is root itself or lies beneath it.
func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !containsTraversal(rel) && !filepath.IsAbs(rel)
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// joinWithin joins name onto root and rejects results that escape root.
// Sanitized names never contain separators.
func joinWithin(root, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid path component %q", name)
	}
	p := filepath.Join(root, name)
	if p == root || !withinRoot(root, p) {
		return "", fmt.Errorf("path %q escapes %s", name, root)
	}
	return p, nil
}
