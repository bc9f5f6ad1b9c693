package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/medley/internal/cache"
	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(stores *cache.Manager, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "medley",
		Usage:   "Media playlist engine for event streams",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(stores, cfg),
			notesCmd(stores, cfg),
			compactCmd(stores, cfg),
			purgeCmd(stores),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command: the full pipeline plus the web UI.
func runCmd(stores *cache.Manager, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Subscribe to the configured relays and serve the player UI",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "relay", Aliases: []string{"r"}, Usage: "Relay URL (repeatable, overrides config)"},
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Web UI bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8484, Usage: "Web UI port"},
			&cli.BoolFlag{Name: "no-web", Usage: "Run the pipeline without the web UI"},
		},
		Action: func(c *cli.Context) error {
			if relays := c.StringSlice("relay"); len(relays) > 0 {
				cfg.Relays = relays
			}
			if len(cfg.Relays) == 0 {
				return outputError(errors.NewInvalidRequest("no relays configured; pass --relay or set relays in config.json"))
			}

			logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
			rt := buildRuntime(cfg, stores, logger)
			defer rt.pool.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if store, err := stores.Acquire(); err == nil {
				store.ConfigurePool(cfg)
			}
			if err := rt.engine.Start(ctx); err != nil {
				return outputError(err)
			}
			defer rt.engine.Stop()
			go rt.player.Run(ctx)

			if c.Bool("no-web") {
				logger.Info("pipeline running", "relays", len(cfg.Relays))
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
				return nil
			}

			srv := web.NewServer(rt.engine, rt.player, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// notesCmd creates the notes command: inspect the persisted cache.
func notesCmd(stores *cache.Manager, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List cached notes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "media", Aliases: []string{"m"}, Usage: "Filter by media type: image|video|audio|unknown"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum notes to print"},
		},
		Action: func(c *cli.Context) error {
			store, err := stores.Acquire()
			if err != nil {
				return outputError(err)
			}

			notes, err := store.GetAll(cfg.CacheCapacity)
			if err != nil {
				return outputError(err)
			}

			if media := c.String("media"); media != "" {
				mt := note.MediaType(media)
				switch mt {
				case note.MediaImage, note.MediaVideo, note.MediaAudio, note.MediaUnknown:
				default:
					return outputError(errors.NewInvalidRequest("unknown media type: " + media))
				}
				filtered := notes[:0]
				for _, n := range notes {
					if n.MediaType == mt {
						filtered = append(filtered, n)
					}
				}
				notes = filtered
			}

			if limit := c.Int("limit"); limit > 0 && len(notes) > limit {
				notes = notes[:limit]
			}

			return outputJSON(map[string]any{
				"count": len(notes),
				"notes": notes,
			})
		},
	}
}

// compactCmd creates the compact command.
func compactCmd(stores *cache.Manager, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "compact",
		Usage: "Evict cached notes beyond capacity",
		Action: func(c *cli.Context) error {
			store, err := stores.Acquire()
			if err != nil {
				return outputError(err)
			}

			evicted, err := store.Compact(cfg.CacheCapacity)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"evicted": evicted})
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(stores *cache.Manager) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete every cached note",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip confirmation"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("purge deletes the whole cache; pass --yes to confirm"))
			}

			store, err := stores.Acquire()
			if err != nil {
				return outputError(err)
			}

			purged, err := store.Purge()
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"purged": purged})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if medleyErr, ok := err.(*errors.MedleyError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", medleyErr.Code, medleyErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
