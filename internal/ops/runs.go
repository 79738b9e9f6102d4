package ops

import (
	"database/sql"

	"github.com/hpungsan/gistdl/internal/db"
)

// RunsInput contains parameters for the Runs operation.
type RunsInput struct {
	Limit  int // default: 20, max: 100
	Offset int
}

// RunsOutput contains the result of the Runs operation.
type RunsOutput struct {
	Items      []db.Run   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Runs lists recorded runs, newest first.
func Runs(database *sql.DB, input RunsInput) (*RunsOutput, error) {
	limit := clampLimit(input.Limit, DefaultRunsLimit, MaxRunsLimit)
	offset := max(input.Offset, 0)

	runs, err := db.ListRuns(database, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.CountRuns(database)
	if err != nil {
		return nil, err
	}

	return &RunsOutput{
		Items: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
	}, nil
}

// FailuresInput contains parameters for the Failures operation.
type FailuresInput struct {
	RunID string // empty means the latest run
	All   bool   // include written files too
}

// FailuresOutput contains the result of the Failures operation.
type FailuresOutput struct {
	Run   db.Run          `json:"run"`
	Files []db.FileRecord `json:"files"`
}

// Failures reports the files of a run that were not written.
// Returns NOT_FOUND when the run does not exist or no run was recorded.
func Failures(database *sql.DB, input FailuresInput) (*FailuresOutput, error) {
	var run *db.Run
	var err error
	if input.RunID != "" {
		run, err = db.GetRun(database, input.RunID)
	} else {
		run, err = db.GetLatestRun(database)
	}
	if err != nil {
		return nil, err
	}

	files, err := db.ListFiles(database, run.ID, "")
	if err != nil {
		return nil, err
	}

	out := &FailuresOutput{Run: *run, Files: []db.FileRecord{}}
	for _, f := range files {
		if input.All || f.Status != db.StatusOK {
			out.Files = append(out.Files, f)
		}
	}
	return out, nil
}
