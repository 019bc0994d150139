// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/udj/internal/formatter"
	"github.com/urfave/cli/v3"
)

func accountFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "account",
		Aliases: []string{"a"},
		Usage:   "Account name (defaults to sync.account)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, csv or json",
		Value:   formatter.FormatText,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create config.toml if missing and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// accountCommand manages the credentials used to sync
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage UDJ accounts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Verify credentials with the server and store them",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Account (user) name", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Account password", Required: true},
				},
				Action: r.AccountAdd,
			},
			{
				Name:   "list",
				Usage:  "List stored accounts",
				Action: r.AccountList,
			},
			{
				Name:   "status",
				Usage:  "Show token, cursor and pending entries for an account",
				Flags:  []cli.Flag{accountFlag()},
				Action: r.AccountStatus,
			},
			{
				Name:   "logout",
				Usage:  "Drop the cached token; the next sync authenticates again",
				Flags:  []cli.Flag{accountFlag()},
				Action: r.AccountLogout,
			},
			{
				Name:   "remove",
				Usage:  "Delete the account and its sync cursor",
				Flags:  []cli.Flag{accountFlag()},
				Action: r.AccountRemove,
			},
		},
	}
}

// playlistCommand edits an account's local playlist; changes reach the server on the next sync
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Queue and vote on playlist entries",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Queue a library track",
				Flags: []cli.Flag{
					accountFlag(),
					&cli.IntFlag{Name: "library-id", Usage: "Library track id", Required: true},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "vote",
				Usage: "Vote an entry up or down",
				Flags: []cli.Flag{
					accountFlag(),
					&cli.StringFlag{Name: "id", Usage: "Playlist entry id", Required: true},
					&cli.BoolFlag{Name: "up", Usage: "Vote up"},
					&cli.BoolFlag{Name: "down", Usage: "Vote down"},
				},
				Action: r.PlaylistVote,
			},
			{
				Name:   "list",
				Usage:  "Show the local playlist",
				Flags:  []cli.Flag{accountFlag(), formatFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:  "remove",
				Usage: "Remove a synced entry from the local playlist",
				Flags: []cli.Flag{
					accountFlag(),
					&cli.StringFlag{Name: "id", Usage: "Playlist entry id", Required: true},
				},
				Action: r.PlaylistRemove,
			},
		},
	}
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse the synced library",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List library tracks",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by title, artist or album"},
				},
				Action: r.LibraryList,
			},
		},
	}
}

// syncCommand runs sync cycles against the configured server
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize the playlist with the server",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one sync cycle",
				Flags: []cli.Flag{
					accountFlag(),
					&cli.BoolFlag{Name: "library", Usage: "Also fetch the library delta"},
					&cli.BoolFlag{Name: "json", Usage: "Output the outcome as JSON"},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "watch",
				Usage: "Sync every interval until interrupted",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "account", Aliases: []string{"a"}, Usage: "Accounts to sync (repeatable)"},
					&cli.BoolFlag{Name: "library", Usage: "Also fetch the library delta"},
					&cli.DurationFlag{Name: "interval", Usage: "Delay between cycles (defaults to sync.interval_minutes)"},
				},
				Action: r.SyncWatch,
			},
			{
				Name:   "reset",
				Usage:  "Forget the cursor so the next cycle fetches the whole playlist",
				Flags:  []cli.Flag{accountFlag()},
				Action: r.SyncReset,
			},
		},
	}
}

// serveCommand runs the development server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run an in-memory UDJ server for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (defaults to server.host)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (defaults to server.port)"},
			&cli.StringFlag{Name: "library", Usage: "JSON file of library tracks to seed"},
		},
		Action: r.Serve,
	}
}
