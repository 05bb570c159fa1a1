// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand handles setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the config file",
						Value: "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// loadCommand reads a source playlist from its share URL.
func loadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Load a playlist from a Spotify or Apple Music URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Aliases:  []string{"u"},
				Usage:    "Playlist share URL",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the normalized playlist as JSON",
			},
		},
		Action: r.Load,
	}
}

// searchCommand looks up a single track on a destination platform.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a destination catalog for one track",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Platform to search (spotify or apple)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "track",
				Aliases:  []string{"t"},
				Usage:    "Track name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artist",
				Aliases:  []string{"a"},
				Usage:    "Primary artist name",
				Required: true,
			},
		},
		Action: r.Search,
	}
}

// transferCommand copies a playlist to another platform.
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer a playlist to another platform",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Aliases:  []string{"u"},
				Usage:    "Source playlist share URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Destination platform (spotify or apple)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a transfer report to this path",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: csv, markdown, txt or json (default: from --report extension)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Preview, confirm and watch the transfer in an interactive view",
			},
			&cli.BoolFlag{
				Name:  "bar",
				Usage: "Show a progress bar instead of line-by-line progress",
			},
		},
		Action: r.Transfer,
	}
}

// tokenCommand fetches a platform token from the backend.
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Fetch a platform token from the token backend",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "platform",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "show",
				Usage: "Print the full token instead of a masked one",
			},
		},
		Action: r.Token,
	}
}

// serveCommand runs the token backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the token backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port from config)",
			},
		},
		Action: r.Serve,
	}
}
