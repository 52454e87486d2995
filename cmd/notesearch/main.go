package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "1.0.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "notesearch",
		Usage:   "Search study notes and premium summaries, and unlock summaries with credits",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML settings file",
				EnvVars: []string{"NOTES_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-mode",
				Usage:   "Logging mode (development, production)",
				EnvVars: []string{"NOTES_LOG_MODE"},
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML seed served by the seed content source",
				EnvVars: []string{"NOTES_SEED_FILE"},
			},
			&cli.StringFlag{
				Name:    "source-dsn",
				Usage:   "Postgres DSN of the content portal; switches the source driver to postgres",
				EnvVars: []string{"NOTES_SOURCE_DSN"},
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Match acceptance threshold in (0,1]",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to run the server on",
						EnvVars: []string{"NOTES_PORT"},
					},
					&cli.StringFlag{
						Name:    "ledger-driver",
						Usage:   "Ledger storage (memory, sqlite, postgres)",
						EnvVars: []string{"NOTES_LEDGER_DRIVER"},
					},
					&cli.StringFlag{
						Name:    "ledger-dsn",
						Usage:   "Database DSN for the sqlite or postgres ledger",
						EnvVars: []string{"NOTES_LEDGER_DSN"},
					},
					&cli.StringFlag{
						Name:  "ledger-snapshot",
						Usage: "Gob snapshot file for the memory ledger",
					},
					&cli.StringFlag{
						Name:  "analytics-file",
						Usage: "Gob file search analytics are kept in; enables analytics",
					},
					&cli.DurationFlag{
						Name:  "corpus-ttl",
						Usage: "How long a corpus snapshot may be reused (0 rebuilds per search)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run one search against the configured source and print the result as JSON",
				ArgsUsage: "[query...]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Usage: "Only items of this subject ID"},
					&cli.StringFlag{Name: "university", Usage: "Only items from this university"},
					&cli.StringFlag{Name: "file-kind", Usage: "Only items of this file kind (pdf, docx, pptx, image, other)"},
					&cli.Float64Flag{Name: "min-rating", Usage: "Only items rated at least this"},
					&cli.IntFlag{Name: "page", Usage: "Result page", Value: 1},
					&cli.IntFlag{Name: "page-size", Usage: "Results per page"},
				},
			},
		},
	}
}
