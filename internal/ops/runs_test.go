package ops

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/gistdl/internal/db"
	"github.com/hpungsan/gistdl/internal/errors"
)

func TestRuns_Pagination(t *testing.T) {
	ledger := setupLedger(t)
	for i := range 5 {
		require.NoError(t, db.InsertRun(ledger, &db.Run{
			ID:        fmt.Sprintf("run-%d", i),
			Username:  "octocat",
			OutputDir: "/tmp/gists",
			StartedAt: int64(1000 + i),
		}))
	}

	out, err := Runs(ledger, RunsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, "run-4", out.Items[0].ID)
	require.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 5}, out.Pagination)

	out, err = Runs(ledger, RunsInput{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.False(t, out.Pagination.HasMore)
}

func TestRuns_ClampsLimit(t *testing.T) {
	ledger := setupLedger(t)

	out, err := Runs(ledger, RunsInput{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	require.Equal(t, MaxRunsLimit, out.Pagination.Limit)
	require.Zero(t, out.Pagination.Offset)
	require.Empty(t, out.Items)

	out, err = Runs(ledger, RunsInput{})
	require.NoError(t, err)
	require.Equal(t, DefaultRunsLimit, out.Pagination.Limit)
}

func TestFailures_LatestRun(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.addGist(1, "g1", "mixed", map[string]string{"ok.txt": "fine", "gone.txt": "x"})
	gh.missingRaw["/raw/g1/gone.txt"] = true
	ledger := setupLedger(t)

	run, err := runDownload(t, gh, ledger, DownloadInput{OutputDir: t.TempDir()})
	require.NoError(t, err)

	out, err := Failures(ledger, FailuresInput{})
	require.NoError(t, err)
	require.Equal(t, run.RunID, out.Run.ID)
	require.Len(t, out.Files, 1)
	require.Equal(t, "gone.txt", out.Files[0].Name)
	require.Equal(t, db.StatusFailed, out.Files[0].Status)

	all, err := Failures(ledger, FailuresInput{RunID: run.RunID, All: true})
	require.NoError(t, err)
	require.Len(t, all.Files, 2)
}

func TestFailures_NotFound(t *testing.T) {
	ledger := setupLedger(t)

	_, err := Failures(ledger, FailuresInput{})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = Failures(ledger, FailuresInput{RunID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFailures_CleanRunIsEmpty(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.addGist(1, "g1", "fine", map[string]string{"a.txt": "a"})
	ledger := setupLedger(t)

	_, err := Download(context.Background(), DownloadDeps{Lister: gh.client(), Fetcher: gh.client(), DB: ledger},
		DownloadInput{OutputDir: t.TempDir()})
	require.NoError(t, err)

	out, err := Failures(ledger, FailuresInput{})
	require.NoError(t, err)
	require.NotNil(t, out.Files)
	require.Empty(t, out.Files)
}
