package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/db"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/gist"
	"github.com/hpungsan/gistdl/internal/github"
	"github.com/hpungsan/gistdl/internal/index"
)

// DownloadDeps holds the collaborators of Download.
type DownloadDeps struct {
	Lister  Lister
	Fetcher Fetcher
	DB      *sql.DB // run ledger; nil disables recording
	Logger  *log.Logger
}

// DownloadInput contains parameters for the Download operation.
type DownloadInput struct {
	Username        string // recorded in the ledger
	OutputDir       string
	MaxConcurrency  int
	MaxNameLength   int
	CollisionPolicy string // config.CollisionSuffix (default) or config.CollisionOverwrite
	WriteIndex      bool
}

// DownloadOutput contains the result of the Download operation.
type DownloadOutput struct {
	RunID           string       `json:"run_id"`
	OutputDir       string       `json:"output_dir"`
	GistsListed     int          `json:"gists_listed"`
	ListingComplete bool         `json:"listing_complete"`
	ListingError    string       `json:"listing_error,omitempty"`
	GistsProcessed  int          `json:"gists_processed"`
	DirsFailed      int          `json:"dirs_failed"`
	FilesWritten    int          `json:"files_written"`
	FilesFailed     int          `json:"files_failed"`
	BytesWritten    int64        `json:"bytes_written"`
	Failures        []FileResult `json:"failures"`
	IndexPath       string       `json:"index_path,omitempty"`
	StartedAt       int64        `json:"started_at"`
	FinishedAt      int64        `json:"finished_at"`
}

// InputFromConfig builds a DownloadInput from cfg.
func InputFromConfig(cfg *config.Config) DownloadInput {
	return DownloadInput{
		Username:        cfg.Username,
		OutputDir:       cfg.OutputDir,
		MaxConcurrency:  cfg.MaxConcurrency,
		MaxNameLength:   cfg.MaxNameLength,
		CollisionPolicy: cfg.CollisionPolicy,
		WriteIndex:      cfg.WriteIndex,
	}
}

// Download lists every gist, then persists all of them.
//
// The listing runs to completion before any download starts. A listing that
// fails before yielding any gist is returned as an error; a listing that
// fails part way is logged and the gists fetched so far are persisted.
// Per-file failures never fail the operation; they are reported in Failures
// and in the run ledger.
func Download(ctx context.Context, deps DownloadDeps, input DownloadInput) (*DownloadOutput, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	switch input.CollisionPolicy {
	case "", config.CollisionSuffix, config.CollisionOverwrite:
	default:
		return nil, errors.NewInvalidRequest("collision policy must be suffix or overwrite")
	}

	root, err := ValidateOutputRoot(input.OutputDir)
	if err != nil {
		return nil, err
	}

	out := &DownloadOutput{
		RunID:     newRunID(),
		OutputDir: root,
		StartedAt: time.Now().Unix(),
		Failures:  []FileResult{},
	}

	run := &db.Run{
		ID:        out.RunID,
		Username:  input.Username,
		OutputDir: root,
		StartedAt: out.StartedAt,
	}
	ledger := deps.DB
	if ledger != nil {
		if err := db.InsertRun(ledger, run); err != nil {
			logger.Printf("run ledger unavailable, not recording this run: %v", err)
			ledger = nil
		}
	}

	listing, listErr := deps.Lister.ListAll(ctx)
	if listing == nil {
		listing = &github.ListResult{}
	}
	out.GistsListed = len(listing.Gists)
	out.ListingComplete = listErr == nil && listing.Complete
	if listErr != nil {
		out.ListingError = listErr.Error()
		if errors.Is(listErr, errors.ErrCancelled) || len(listing.Gists) == 0 {
			finishRun(ctx, ledger, logger, run, out, nil)
			return nil, listErr
		}
		logger.Printf("listing incomplete, continuing with %d gists: %v", len(listing.Gists), listErr)
	}

	opts := gist.PlanOptions{
		MaxNameLength: input.MaxNameLength,
		Overwrite:     input.CollisionPolicy == config.CollisionOverwrite,
	}
	if input.WriteIndex {
		opts.Reserved = []string{index.FileName}
	}
	targets := gist.Plan(listing.Gists, opts)

	persister := NewPersister(deps.Fetcher, root, input.MaxConcurrency, logger)
	res := persister.PersistAll(ctx, targets)

	out.GistsProcessed = res.Gists
	out.DirsFailed = res.DirsFailed
	out.FilesWritten = res.FilesWritten
	out.FilesFailed = res.FilesFailed
	out.BytesWritten = res.BytesWritten
	out.Failures = res.Failures()

	if input.WriteIndex {
		path, err := index.Write(root, index.EntriesFrom(listing.Gists, targets))
		if err != nil {
			logger.Printf("error writing index: %v", err)
		} else {
			out.IndexPath = path
		}
	}

	finishRun(ctx, ledger, logger, run, out, res.Files)

	logger.Printf("Downloaded %d gists (%d files written, %d failed).",
		out.GistsProcessed, out.FilesWritten, out.FilesFailed)

	return out, nil
}

// finishRun stores the run's counters and file outcomes. Ledger errors are
// logged only; the files on disk are the primary result.
func finishRun(ctx context.Context, ledger *sql.DB, logger *log.Logger, run *db.Run, out *DownloadOutput, files []FileResult) {
	out.FinishedAt = time.Now().Unix()
	if ledger == nil {
		return
	}

	run.FinishedAt = &out.FinishedAt
	run.GistsListed = out.GistsListed
	run.ListingComplete = out.ListingComplete
	if out.ListingError != "" {
		msg := out.ListingError
		run.ListingError = &msg
	}
	run.DirsFailed = out.DirsFailed
	run.FilesWritten = out.FilesWritten
	run.FilesFailed = out.FilesFailed
	run.BytesWritten = out.BytesWritten

	records := make([]db.FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, db.FileRecord{
			RunID:     run.ID,
			GistID:    f.GistID,
			Dir:       f.Dir,
			FileKey:   f.Key,
			Name:      f.Name,
			Path:      f.Path,
			Status:    f.Status,
			ErrorCode: string(f.ErrorCode),
			Error:     f.Error,
			Bytes:     f.Bytes,
		})
	}

	// The download context may already be cancelled; the ledger write must still land
	if err := db.InsertFiles(context.WithoutCancel(ctx), ledger, records); err != nil {
		logger.Printf("error recording file results: %v", err)
	}
	if err := db.FinishRun(ledger, run); err != nil {
		logger.Printf("error recording run: %v", err)
	}
}

// newRunID generates a new ULID for a run.
func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
