// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/wayfind/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (overrides config)",
	}

	return &cli.App{
		Name:  "wayfind",
		Usage: "Search and filter campus amenities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); defaults to the configured level",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			dbFlag,
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides config)",
					},
					&cli.StringFlag{
						Name:  "seed",
						Usage: "Seed CSV imported at startup (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-import the seed file whenever it changes",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search utilities by category and text",
				ArgsUsage: "[query...]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "category",
						Aliases: []string{"t"},
						Usage:   "Category id to filter on (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "scores",
						Usage: "Print relevance scores",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log each search stage and candidate score to stderr",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 for all)",
						Value: 0,
					},
				},
			},
			{
				Name:      "import-csv",
				Usage:     "Import utilities from a seed CSV file",
				ArgsUsage: "<file>",
				Action:    importCSVCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Import even if the file is unchanged since the last import",
					},
				},
			},
			{
				Name:   "export-csv",
				Usage:  "Export all utilities as a seed CSV file",
				Action: exportCSVCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (defaults to stdout)",
					},
				},
			},
			{
				Name:      "import-gtfs",
				Usage:     "Import bus stops from an unpacked GTFS feed directory",
				ArgsUsage: "<dir>",
				Action:    importGTFSCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show import progress on stderr",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load the built-in sample utilities, or a seed file",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "src",
						Usage: "Seed CSV file to load instead of the built-in sample",
					},
				},
			},
			{
				Name:  "report",
				Usage: "File, list and resolve issue reports",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "File a report against a utility",
						ArgsUsage: "<utility-id> [note...]",
						Action:    reportAddCommand,
					},
					{
						Name:      "list",
						Usage:     "List the reports filed against a utility",
						ArgsUsage: "<utility-id>",
						Action:    reportListCommand,
					},
					{
						Name:      "resolve",
						Usage:     "Clear the reports filed against a utility",
						ArgsUsage: "<utility-id>",
						Action:    reportResolveCommand,
					},
				},
			},
		},
	}
}

// setup loads the configuration and configures logging.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if db := c.String("db"); db != "" {
		cfg.Database.Path = db
		cfg.Database.InMemory = false
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[configKey] = cfg

	levelStr := c.String("log-level")
	if levelStr == "" {
		levelStr = cfg.Log.Level
	}
	return setupLogger(levelStr)
}

func setupLogger(levelStr string) error {
	// Map string to slog.Level
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// configFrom returns the configuration loaded by setup. Subcommands may run
// under their own App, so the whole lineage is searched.
func configFrom(c *cli.Context) config.Config {
	for _, ctx := range c.Lineage() {
		if ctx.App == nil {
			continue
		}
		if cfg, ok := ctx.App.Metadata[configKey].(config.Config); ok {
			return cfg
		}
	}
	return config.Default()
}
