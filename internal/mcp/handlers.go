package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/github"
	"github.com/hpungsan/gistdl/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	logger *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, logger *log.Logger) *Handlers {
	return &Handlers{db: db, cfg: cfg, logger: logger}
}

// Request types for each tool

// ListRequest represents the arguments for gist_list.
type ListRequest struct {
	CollisionPolicy string `json:"collision_policy,omitempty"`
	MaxNameLength   int    `json:"max_name_length,omitempty"`
}

// DownloadRequest represents the arguments for gist_download.
type DownloadRequest struct {
	OutputDir       string `json:"output_dir,omitempty"`
	MaxConcurrency  int    `json:"max_concurrency,omitempty"`
	CollisionPolicy string `json:"collision_policy,omitempty"`
	MaxNameLength   int    `json:"max_name_length,omitempty"`
	WriteIndex      *bool  `json:"write_index,omitempty"`
	Record          *bool  `json:"record,omitempty"`
}

// RunsRequest represents the arguments for run_list.
type RunsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// FailuresRequest represents the arguments for run_failures.
type FailuresRequest struct {
	RunID string `json:"run_id,omitempty"`
	All   bool   `json:"all,omitempty"`
}

// HandleList handles the gist_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	run := *h.cfg
	if input.CollisionPolicy != "" {
		run.CollisionPolicy = input.CollisionPolicy
	}
	if input.MaxNameLength > 0 {
		run.MaxNameLength = input.MaxNameLength
	}
	if err := run.Validate(); err != nil {
		return errorResult(err), nil
	}

	client := github.NewClient(&run, "gistdl-mcp", h.logger)
	result, err := ops.List(ctx, client, ops.ListInput{
		MaxNameLength:   run.MaxNameLength,
		CollisionPolicy: run.CollisionPolicy,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDownload handles the gist_download tool call.
func (h *Handlers) HandleDownload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DownloadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	run := *h.cfg
	if input.OutputDir != "" {
		run.OutputDir = input.OutputDir
	}
	if input.MaxConcurrency > 0 {
		run.MaxConcurrency = input.MaxConcurrency
	}
	if input.CollisionPolicy != "" {
		run.CollisionPolicy = input.CollisionPolicy
	}
	if input.MaxNameLength > 0 {
		run.MaxNameLength = input.MaxNameLength
	}
	if input.WriteIndex != nil {
		run.WriteIndex = *input.WriteIndex
	}
	if err := run.Validate(); err != nil {
		return errorResult(err), nil
	}

	client := github.NewClient(&run, "gistdl-mcp", h.logger)
	deps := ops.DownloadDeps{Lister: client, Fetcher: client, DB: h.db, Logger: h.logger}
	if input.Record != nil && !*input.Record {
		deps.DB = nil
	}

	result, err := ops.Download(ctx, deps, ops.InputFromConfig(&run))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRuns handles the run_list tool call.
func (h *Handlers) HandleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Runs(h.db, ops.RunsInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFailures handles the run_failures tool call.
func (h *Handlers) HandleFailures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FailuresRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Failures(h.db, ops.FailuresInput{
		RunID: input.RunID,
		All:   input.All,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var gistErr *errors.GistError
	if stderrors.As(err, &gistErr) {
		msg := gistErr.Message
		switch {
		case gistErr.Code == errors.ErrInternal:
			msg = "an internal error occurred"
		case err != error(gistErr):
			// Keep wrapper context such as "gist abc: ..."
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    gistErr.Code,
			"message": msg,
		}
		if gistErr.Code != errors.ErrInternal && gistErr.Details != nil {
			errorObj["details"] = gistErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
