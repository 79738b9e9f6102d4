package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/gist"
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// Client talks to the GitHub gists API and fetches raw file content.
type Client struct {
	baseURL    string
	username   string
	token      string
	userAgent  string
	perPage    int
	timeout    time.Duration // per listing page; 0 means none
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a Client from cfg. Credentials are taken from cfg only;
// the client never reads the environment.
func NewClient(cfg *config.Config, userAgent string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	// The deadline covers dialing and response headers; raw bodies stream without one
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		username:   cfg.Username,
		token:      cfg.Token,
		userAgent:  userAgent,
		perPage:    perPage,
		timeout:    timeout,
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

// ListResult is the outcome of a full listing.
type ListResult struct {
	Gists []gist.Gist
	Pages int // pages that returned data

	// Complete is false when a page request failed and Gists holds only
	// the pages fetched before the failure.
	Complete bool
}

// ListAll requests pages until an empty page is returned.
//
// A failing page ends pagination: the gists accumulated so far are returned
// together with a LISTING_FAILED error, so callers can continue best-effort.
func (c *Client) ListAll(ctx context.Context) (*ListResult, error) {
	result := &ListResult{Gists: []gist.Gist{}}

	for page := 1; ; page++ {
		gists, err := c.ListPage(ctx, page)
		if err != nil {
			c.logger.Printf("error fetching gists: %v", err)
			return result, err
		}
		if len(gists) == 0 {
			result.Complete = true
			return result, nil
		}
		result.Gists = append(result.Gists, gists...)
		result.Pages++
	}
}

// ListPage fetches a single 1-based page of the user's gists.
func (c *Client) ListPage(ctx context.Context, page int) ([]gist.Gist, error) {
	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/users/%s/gists", c.baseURL, url.PathEscape(c.username))
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewListingFailed(page, 0, err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if parent.Err() != nil {
			return nil, errors.NewCancelled("listing")
		}
		return nil, errors.NewListingFailed(page, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		lerr := errors.NewListingFailed(page, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			lerr.Message += " (check GITHUB_TOKEN and GITHUB_USERNAME)"
		}
		return nil, lerr
	}

	var gists []gist.Gist
	if err := json.NewDecoder(resp.Body).Decode(&gists); err != nil {
		return nil, errors.NewListingFailed(page, 0, fmt.Errorf("decode response: %w", err))
	}
	return gists, nil
}

// OpenRaw starts a streaming GET of a raw content URL.
// The caller must close the returned body.
func (c *Client) OpenRaw(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewDownloadFailed(rawURL, 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("download")
		}
		return nil, errors.NewDownloadFailed(rawURL, 0, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NewDownloadFailed(rawURL, resp.StatusCode, nil)
	}
	return resp.Body, nil
}
