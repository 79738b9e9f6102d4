package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/gistdl/internal/config"
)

var listToolDef = mcp.NewTool("gist_list",
	mcp.WithDescription("List every gist of the configured GitHub account together with the directory and file names a download would use. Writes nothing."),
	mcp.WithString("collision_policy",
		mcp.Description("How gists whose names sanitize identically are laid out"),
		mcp.Enum(config.CollisionSuffix, config.CollisionOverwrite),
	),
	mcp.WithNumber("max_name_length",
		mcp.Description("Name length in characters before truncation (default 100)"),
	),
)

var downloadToolDef = mcp.NewTool("gist_download",
	mcp.WithDescription("Download every gist of the configured GitHub account into one directory per gist. Per-file failures are reported in failures and do not fail the call."),
	mcp.WithString("output_dir",
		mcp.Description("Output root directory (default from config)"),
	),
	mcp.WithNumber("max_concurrency",
		mcp.Description("Maximum concurrent downloads (default 8)"),
	),
	mcp.WithString("collision_policy",
		mcp.Description("How gists whose names sanitize identically are laid out"),
		mcp.Enum(config.CollisionSuffix, config.CollisionOverwrite),
	),
	mcp.WithNumber("max_name_length",
		mcp.Description("Name length in characters before truncation (default 100)"),
	),
	mcp.WithBoolean("write_index",
		mcp.Description("Write index.html at the output root"),
	),
	mcp.WithBoolean("record",
		mcp.Description("Record the run in the ledger (default true)"),
	),
)

var runsToolDef = mcp.NewTool("run_list",
	mcp.WithDescription("List recorded download runs, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum results (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset"),
	),
)

var failuresToolDef = mcp.NewTool("run_failures",
	mcp.WithDescription("Show the files a recorded run failed to write, with their error codes."),
	mcp.WithString("run_id",
		mcp.Description("Run id (default: latest run)"),
	),
	mcp.WithBoolean("all",
		mcp.Description("Include written files too"),
	),
)
