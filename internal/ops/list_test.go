package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/gistdl/internal/errors"
)

func TestList(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.addGist(1, "abc123", nil, map[string]string{"a.txt": "a"})
	gh.addGist(1, "def456", "Hello World", map[string]string{"b.txt": "b", "c/d.txt": "c"})

	out, err := List(context.Background(), gh.client(), ListInput{})
	require.NoError(t, err)
	require.True(t, out.Complete)
	require.Equal(t, 2, out.Total)

	require.Equal(t, "abc123", out.Items[0].Dir)
	require.Equal(t, []string{"a.txt"}, out.Items[0].Files)
	require.Equal(t, "Hello_World", out.Items[1].Dir)
	require.Equal(t, "Hello World", out.Items[1].Description)
	require.Equal(t, []string{"b.txt", "c_d.txt"}, out.Items[1].Files)
}

func TestList_WritesNothing(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.addGist(1, "g1", "x", map[string]string{"a.txt": "a"})

	_, err := List(context.Background(), gh.client(), ListInput{})
	require.NoError(t, err)
	require.Zero(t, gh.rawHits.Load(), "List must not fetch raw content")
}

func TestList_PartialListing(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.addGist(1, "g1", "kept", map[string]string{"a.txt": "a"})
	gh.failPages[2] = true

	out, err := List(context.Background(), gh.client(), ListInput{})
	require.NoError(t, err)
	require.False(t, out.Complete)
	require.NotEmpty(t, out.ListingError)
	require.Len(t, out.Items, 1)
}

func TestList_ListingFails(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.failPages[1] = true

	_, err := List(context.Background(), gh.client(), ListInput{})
	require.True(t, errors.Is(err, errors.ErrListingFailed))
}
