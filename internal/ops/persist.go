package ops

import (
	"context"
	"io"
	"log"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/gistdl/internal/db"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/gist"
)

// DefaultMaxConcurrency bounds in-flight downloads when no limit is given.
const DefaultMaxConcurrency = 8

// FileResult is the settled outcome of one planned file.
type FileResult struct {
	GistID    string           `json:"gist_id"`
	Dir       string           `json:"dir"`
	Key       string           `json:"key"`
	Name      string           `json:"name"`
	Path      string           `json:"path"`
	Status    string           `json:"status"` // db.StatusOK, db.StatusFailed or db.StatusSkipped
	Bytes     int64            `json:"bytes"`
	ErrorCode errors.ErrorCode `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// PersistResult aggregates the outcome of PersistAll.
type PersistResult struct {
	Gists        int          `json:"gists"`
	DirsFailed   int          `json:"dirs_failed"`
	FilesWritten int          `json:"files_written"`
	FilesFailed  int          `json:"files_failed"`
	BytesWritten int64        `json:"bytes_written"`
	Files        []FileResult `json:"files"`
}

// Failures returns the results that did not end in a written file.
func (r *PersistResult) Failures() []FileResult {
	failures := []FileResult{}
	for _, f := range r.Files {
		if f.Status != db.StatusOK {
			failures = append(failures, f)
		}
	}
	return failures
}

// Persister creates gist directories and downloads their files.
type Persister struct {
	fetcher Fetcher
	root    string
	limit   int
	logger  *log.Logger
}

// NewPersister creates a Persister writing under root (absolute, see
// ValidateOutputRoot) with at most limit concurrent downloads.
func NewPersister(fetcher Fetcher, root string, limit int, logger *log.Logger) *Persister {
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Persister{fetcher: fetcher, root: root, limit: limit, logger: logger}
}

// PersistAll materializes every target and returns once every dispatched
// download has settled.
//
// A directory failure skips that gist's files; a download or write failure
// skips that file. Neither stops sibling work.
func (p *Persister) PersistAll(ctx context.Context, targets []gist.Target) *PersistResult {
	res := &PersistResult{Gists: len(targets)}

	var mu sync.Mutex
	record := func(r FileResult) {
		mu.Lock()
		defer mu.Unlock()
		res.Files = append(res.Files, r)
		switch r.Status {
		case db.StatusOK:
			res.FilesWritten++
			res.BytesWritten += r.Bytes
		default:
			res.FilesFailed++
		}
	}

	var g errgroup.Group
	g.SetLimit(p.limit)

	for _, t := range targets {
		if ctx.Err() != nil {
			for _, f := range t.Files {
				record(failedResult(t, f, "", db.StatusFailed, errors.NewCancelled("download")))
			}
			continue
		}

		dir, err := p.ensureDir(t.Dir)
		if err != nil {
			p.logger.Printf("error creating directory: %v", err)
			mu.Lock()
			res.DirsFailed++
			mu.Unlock()
			for _, f := range t.Files {
				record(failedResult(t, f, "", db.StatusSkipped, err))
			}
			continue
		}

		for _, f := range t.Files {
			g.Go(func() error {
				record(p.persistFile(ctx, t, dir, f))
				return nil
			})
		}
	}

	// Tasks never return errors; Wait is the join point for all downloads.
	_ = g.Wait()

	sort.Slice(res.Files, func(i, j int) bool {
		if res.Files[i].Dir != res.Files[j].Dir {
			return res.Files[i].Dir < res.Files[j].Dir
		}
		if res.Files[i].GistID != res.Files[j].GistID {
			return res.Files[i].GistID < res.Files[j].GistID
		}
		return res.Files[i].Name < res.Files[j].Name
	})
	if res.Files == nil {
		res.Files = []FileResult{}
	}
	return res
}

// ensureDir creates root/name. An existing directory is success.
func (p *Persister) ensureDir(name string) (string, error) {
	dir, err := joinWithin(p.root, name)
	if err != nil {
		return "", errors.NewDirectoryFailed(name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewDirectoryFailed(dir, err)
	}
	return dir, nil
}

// persistFile downloads one file into dir.
func (p *Persister) persistFile(ctx context.Context, t gist.Target, dir string, f gist.FileTarget) FileResult {
	path, err := joinWithin(dir, f.Name)
	if err != nil {
		return failedResult(t, f, "", db.StatusFailed, errors.NewWriteFailed(f.Name, err))
	}

	if ctx.Err() != nil {
		return failedResult(t, f, path, db.StatusFailed, errors.NewCancelled("download"))
	}

	p.logger.Printf("downloading... %s", f.Name)

	body, err := p.fetcher.OpenRaw(ctx, f.RawURL)
	if err != nil {
		p.logger.Printf("error downloading file %s: %v", f.Name, err)
		return failedResult(t, f, path, db.StatusFailed, err)
	}
	defer body.Close()

	src := &readTracker{r: body}
	n, err := writeFileAtomic(path, src)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = errors.NewCancelled("download")
		case src.err != nil:
			err = errors.NewDownloadFailed(f.RawURL, 0, src.err)
		}
		p.logger.Printf("error downloading file %s: %v", f.Name, err)
		return failedResult(t, f, path, db.StatusFailed, err)
	}

	return FileResult{
		GistID: t.GistID,
		Dir:    t.Dir,
		Key:    f.Key,
		Name:   f.Name,
		Path:   path,
		Status: db.StatusOK,
		Bytes:  n,
	}
}

func failedResult(t gist.Target, f gist.FileTarget, path, status string, err error) FileResult {
	return FileResult{
		GistID:    t.GistID,
		Dir:       t.Dir,
		Key:       f.Key,
		Name:      f.Name,
		Path:      path,
		Status:    status,
		ErrorCode: errors.CodeOf(err),
		Error:     err.Error(),
	}
}
