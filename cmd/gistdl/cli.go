package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/gistdl/internal/config"
	"github.com/hpungsan/gistdl/internal/errors"
	"github.com/hpungsan/gistdl/internal/github"
	"github.com/hpungsan/gistdl/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *log.Logger) *cli.App {
	app := &cli.App{
		Name:    "gistdl",
		Usage:   "Download every gist of a GitHub account",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Aliases: []string{"e"}, Usage: "Dotenv file with GITHUB_USERNAME and GITHUB_TOKEN (default: .env)"},
		},
		Before: func(c *cli.Context) error {
			if cfg == nil {
				return nil
			}
			if err := loadEnvConfig(cfg, c.String("env-file")); err != nil {
				return outputError(err)
			}
			return nil
		},
		Commands: []*cli.Command{
			downloadCmd(db, cfg, logger),
			listCmd(cfg, logger),
			runsCmd(db),
			failuresCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// downloadCmd creates the download command.
func downloadCmd(db *sql.DB, cfg *config.Config, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download all gists into one directory per gist",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output root directory"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Usage: "Maximum concurrent downloads"},
			&cli.StringFlag{Name: "collision", Usage: "Duplicate directory names: suffix|overwrite"},
			&cli.IntFlag{Name: "max-name-length", Usage: "Name length before truncation"},
			&cli.BoolFlag{Name: "index", Usage: "Write index.html at the output root"},
			&cli.BoolFlag{Name: "no-record", Usage: "Do not record the run in the ledger"},
			&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero if any file or listing page failed"},
		},
		Action: func(c *cli.Context) error {
			run := applyFlags(c, cfg)
			if err := run.Validate(); err != nil {
				return outputError(err)
			}

			client := github.NewClient(run, userAgent(), logger)
			deps := ops.DownloadDeps{Lister: client, Fetcher: client, DB: db, Logger: logger}
			if c.Bool("no-record") {
				deps.DB = nil
			}

			output, err := ops.Download(c.Context, deps, ops.InputFromConfig(run))
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}

			if c.Bool("strict") {
				failed := output.FilesFailed
				if failed > 0 || !output.ListingComplete {
					return cli.Exit(fmt.Sprintf("[%s] %d files failed, listing complete: %t",
						errors.ErrDownloadFailed, failed, output.ListingComplete), 1)
				}
			}
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(cfg *config.Config, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List gists and the directories a download would create",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collision", Usage: "Duplicate directory names: suffix|overwrite"},
			&cli.IntFlag{Name: "max-name-length", Usage: "Name length before truncation"},
		},
		Action: func(c *cli.Context) error {
			run := applyFlags(c, cfg)
			if err := run.Validate(); err != nil {
				return outputError(err)
			}

			client := github.NewClient(run, userAgent(), logger)
			output, err := ops.List(c.Context, client, ops.ListInput{
				MaxNameLength:   run.MaxNameLength,
				CollisionPolicy: run.CollisionPolicy,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// runsCmd creates the runs command.
func runsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded download runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Runs(db, ops.RunsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// failuresCmd creates the failures command.
func failuresCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "failures",
		Usage:     "Show files a run failed to write (latest run by default)",
		ArgsUsage: "[run-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include written files"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FailuresInput{All: c.Bool("all")}
			if c.NArg() > 0 {
				input.RunID = c.Args().First()
			}

			output, err := ops.Failures(db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// applyFlags returns a copy of cfg with command flags applied.
func applyFlags(c *cli.Context, cfg *config.Config) *config.Config {
	run := *cfg
	if c.IsSet("output") {
		run.OutputDir = c.String("output")
	}
	if c.IsSet("concurrency") {
		run.MaxConcurrency = c.Int("concurrency")
	}
	if c.IsSet("collision") {
		run.CollisionPolicy = c.String("collision")
	}
	if c.IsSet("max-name-length") {
		run.MaxNameLength = c.Int("max-name-length")
	}
	if c.Bool("index") {
		run.WriteIndex = true
	}
	return &run
}

func userAgent() string {
	return "gistdl/" + Version
}

// outputJSON outputs a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gistErr, ok := err.(*errors.GistError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gistErr.Code, gistErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
