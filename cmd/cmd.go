// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the web chat and JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat page and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "no-annotate",
				Usage: "Do not write annotations in the background; the page asks for them instead",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2 and store the tokens in the config file",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "me",
				Usage: "Show the signed-in Spotify account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyMe,
			},
			{
				Name:  "search",
				Usage: "Search the Spotify catalog for tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifySearch,
			},
		},
	}
}

// buildCommand generates a playlist from a prompt
func buildCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Aliases:   []string{"generate"},
		Usage:     "Create a Spotify playlist from a theme, mood or occasion",
		ArgsUsage: "<prompt...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "annotate",
				Usage: "Also write a short history of the playlist's songs",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
		},
		Action: r.Build,
	}
}

// annotateCommand writes the history of a list of songs
func annotateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "annotate",
		Usage: "Write a short music history for a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "Playlist name",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "track",
				Aliases:  []string{"t"},
				Usage:    `Track as "Title - Artist" (repeatable)`,
				Required: true,
			},
		},
		Action: r.Annotate,
	}
}

// historyCommand lists generated playlists
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List playlists SpottyG has generated",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only playlists owned by this Spotify user ID",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for the interactive chat.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal chat",
		Action:  r.TUI,
	}
}

// mcpCommand serves the playlist tools over MCP stdio.
func mcpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Serve playlist tools to MCP clients over stdio",
		Action: r.MCP,
	}
}
