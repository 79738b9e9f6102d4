package ops

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/gistdl/internal/errors"
)

// writeFileAtomic streams src into a temp file next to path and renames it
// into place, so an interrupted download never leaves a truncated file at path.
// An existing file at path is overwritten.
func writeFileAtomic(path string, src io.Reader) (int64, error) {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	// Fixed-length temp name: a destination name close to NAME_MAX must still fit
	tempPath := filepath.Join(filepath.Dir(path), ".gistdl-"+hex.EncodeToString(randBytes)+".tmp")

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return 0, errors.NewWriteFailed(path, err)
	}

	// Clean up temp file on failure (any previous file at path is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	n, err := io.Copy(file, src)
	if err != nil {
		return n, errors.NewWriteFailed(path, err)
	}

	if err := file.Sync(); err != nil {
		return n, errors.NewWriteFailed(path, err)
	}
	if err := file.Close(); err != nil {
		return n, errors.NewWriteFailed(path, err)
	}
	file = nil

	// Never replace a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return n, errors.NewWriteFailed(path, fmt.Errorf("destination is a symlink"))
	}

	if err := os.Rename(tempPath, path); err != nil {
		return n, errors.NewWriteFailed(path, err)
	}

	success = true
	return n, nil
}

// readTracker records the first non-EOF error returned by the wrapped reader,
// so a failed copy can be attributed to the network rather than the disk.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
