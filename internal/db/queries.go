package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/gistdl/internal/errors"
)

// File statuses recorded in run_files.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped" // directory could not be created
)

// Run is one invocation of the download pipeline.
type Run struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	OutputDir       string  `json:"output_dir"`
	StartedAt       int64   `json:"started_at"`
	FinishedAt      *int64  `json:"finished_at,omitempty"`
	GistsListed     int     `json:"gists_listed"`
	ListingComplete bool    `json:"listing_complete"`
	ListingError    *string `json:"listing_error,omitempty"`
	DirsFailed      int     `json:"dirs_failed"`
	FilesWritten    int     `json:"files_written"`
	FilesFailed     int     `json:"files_failed"`
	BytesWritten    int64   `json:"bytes_written"`
}

// FileRecord is the outcome of one gist file within a run.
type FileRecord struct {
	RunID     string `json:"run_id"`
	GistID    string `json:"gist_id"`
	Dir       string `json:"dir"`
	FileKey   string `json:"file_key"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	Bytes     int64  `json:"bytes"`
}

const runColumns = `id, username, output_dir, started_at, finished_at, gists_listed,
	listing_complete, listing_error, dirs_failed, files_written, files_failed, bytes_written`

// InsertRun records the start of a run.
func InsertRun(db *sql.DB, r *Run) error {
	_, err := db.Exec(
		`INSERT INTO runs (id, username, output_dir, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Username, r.OutputDir, r.StartedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func FinishRun(db *sql.DB, r *Run) error {
	query := `
		UPDATE runs SET
			finished_at = ?, gists_listed = ?, listing_complete = ?, listing_error = ?,
			dirs_failed = ?, files_written = ?, files_failed = ?, bytes_written = ?
		WHERE id = ?
	`
	res, err := db.Exec(query,
		toNullInt64(r.FinishedAt), r.GistsListed, boolToInt(r.ListingComplete), toNullString(r.ListingError),
		r.DirsFailed, r.FilesWritten, r.FilesFailed, r.BytesWritten, r.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(r.ID)
	}
	return nil
}

// InsertFiles stores per-file outcomes of a run in one transaction.
func InsertFiles(ctx context.Context, db *sql.DB, records []FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_files (run_id, gist_id, dir, file_key, name, path, status, error_code, error, bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, f := range records {
		_, err := stmt.ExecContext(ctx,
			f.RunID, f.GistID, f.Dir, f.FileKey, f.Name, f.Path, f.Status,
			emptyToNull(f.ErrorCode), emptyToNull(f.Error), f.Bytes,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves a run by id.
func GetRun(db *sql.DB, id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// GetLatestRun retrieves the most recently started run.
func GetLatestRun(db *sql.DB) (*Run, error) {
	row := db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("latest run")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns runs newest first.
func ListRuns(db *sql.DB, limit, offset int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// CountRuns returns the number of recorded runs.
func CountRuns(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ListFiles returns the file outcomes of a run. An empty status returns all.
func ListFiles(db *sql.DB, runID, status string) ([]FileRecord, error) {
	query := `
		SELECT run_id, gist_id, dir, file_key, name, path, status, error_code, error, bytes
		FROM run_files
		WHERE run_id = ?
	`
	args := []any{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY dir, name"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	records := []FileRecord{}
	for rows.Next() {
		var f FileRecord
		var code, msg sql.NullString
		if err := rows.Scan(&f.RunID, &f.GistID, &f.Dir, &f.FileKey, &f.Name, &f.Path,
			&f.Status, &code, &msg, &f.Bytes); err != nil {
			return nil, errors.NewInternal(err)
		}
		f.ErrorCode = code.String
		f.Error = msg.String
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var finished sql.NullInt64
	var listingErr sql.NullString
	var complete int

	err := s.Scan(&r.ID, &r.Username, &r.OutputDir, &r.StartedAt, &finished, &r.GistsListed,
		&complete, &listingErr, &r.DirsFailed, &r.FilesWritten, &r.FilesFailed, &r.BytesWritten)
	if err != nil {
		return nil, err
	}

	r.ListingComplete = complete != 0
	if finished.Valid {
		r.FinishedAt = &finished.Int64
	}
	if listingErr.Valid {
		r.ListingError = &listingErr.String
	}
	return &r, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
