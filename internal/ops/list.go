package ops

import (
	"context"
	"time"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/gist"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	MaxNameLength   int
	CollisionPolicy string
}

// GistSummary describes one gist and where Download would write it.
type GistSummary struct {
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	Dir         string    `json:"dir"`
	Files       []string  `json:"files"` // planned file names
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items        []GistSummary `json:"items"`
	Total        int           `json:"total"`
	Complete     bool          `json:"complete"`
	ListingError string        `json:"listing_error,omitempty"`
}

// List fetches every gist and reports the planned layout without writing
// anything. Like Download, a partial listing is returned with Complete=false.
func List(ctx context.Context, lister Lister, input ListInput) (*ListOutput, error) {
	listing, err := lister.ListAll(ctx)
	if err != nil && (listing == nil || len(listing.Gists) == 0 || errors.Is(err, errors.ErrCancelled)) {
		return nil, err
	}

	targets := gist.Plan(listing.Gists, gist.PlanOptions{
		MaxNameLength: input.MaxNameLength,
		Overwrite:     input.CollisionPolicy == config.CollisionOverwrite,
	})

	out := &ListOutput{
		Items:    make([]GistSummary, 0, len(targets)),
		Total:    len(targets),
		Complete: err == nil && listing.Complete,
	}
	if err != nil {
		out.ListingError = err.Error()
	}

	for i, t := range targets {
		g := listing.Gists[i]
		names := make([]string, 0, len(t.Files))
		for _, f := range t.Files {
			names = append(names, f.Name)
		}
		out.Items = append(out.Items, GistSummary{
			ID:          g.ID,
			Description: g.Description,
			Public:      g.Public,
			Dir:         t.Dir,
			Files:       names,
			UpdatedAt:   g.UpdatedAt,
		})
	}

	return out, nil
}
