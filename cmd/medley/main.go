package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hpungsan/medley/internal/cache"
	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/engine"
	"github.com/hpungsan/medley/internal/mcp"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/player"
	"github.com/hpungsan/medley/internal/source"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"run": true, "notes": true, "compact": true, "purge": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __  __ ___ ___  _    _____   __
  |  \/  | __|   \| |  | __\ \ / /
  | |\/| | _|| |) | |__| _| \ V /
  |_|  |_|___|___/|____|___| |_|

  Media playlist engine for event streams

  Usage: medley <command> [options]
         medley --help

  MCP server mode requires piped input.`)
}

// runtime bundles the wired pipeline for run and MCP modes.
type runtime struct {
	pool   *source.Pool
	player *player.Player
	engine *engine.Engine
}

// buildRuntime wires the pool, player, and engine together. The player's
// older-fetch callback closes over the engine, so the engine pointer is
// bound after construction.
func buildRuntime(cfg *config.Config, stores *cache.Manager, logger *log.Logger) *runtime {
	pool := source.NewPool(cfg.Relays, logger)

	var eng *engine.Engine
	pl := player.New(player.Options{
		ImageWindowSize:    cfg.ImageWindowSize,
		VideoInitialWindow: cfg.VideoInitialWindow,
		VideoGrowStep:      cfg.VideoGrowStep,
		AdvanceInterval:    time.Duration(cfg.AdvanceIntervalSecs) * time.Second,
		Autoplay:           cfg.AutoplayEnabled(),
		RequestOlder: func(cat note.Category) {
			if eng != nil {
				eng.FetchOlder(cat)
			}
		},
		Logger: logger,
	})
	eng = engine.New(cfg, pool, stores, pl, logger)

	return &runtime{pool: pool, player: pl, engine: eng}
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before store init (no store needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".medley")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	stores := cache.NewManager(baseDir)
	defer stores.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(stores, cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'medley --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	rt := buildRuntime(cfg, stores, logger)
	defer rt.pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if store, err := stores.Acquire(); err == nil {
		store.ConfigurePool(cfg)
	}
	if err := rt.engine.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to start engine: %v\n", err)
		os.Exit(1)
	}
	defer rt.engine.Stop()
	go rt.player.Run(ctx)

	if err := mcp.Run(rt.engine, rt.player, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
