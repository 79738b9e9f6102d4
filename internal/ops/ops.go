package ops

import (
	"context"
	"io"

	"github.com/hpungsan/gistdl/internal/github"
)

// Pagination limits for ledger queries
const (
	DefaultRunsLimit = 20
	MaxRunsLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Lister produces the full gist collection of an account.
// *github.Client implements it.
type Lister interface {
	ListAll(ctx context.Context) (*github.ListResult, error)
}

// Fetcher opens a streaming read of a raw content URL.
// *github.Client implements it.
type Fetcher interface {
	OpenRaw(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// clampLimit applies defaults and bounds to a page size.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
