package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/logging"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printBanner displays a short usage banner when run interactively without args.
func printBanner(w io.Writer) {
	fmt.Fprintln(w, `
      _ _               _       _
   __| (_)___ _ __  __ _| |_ ___| |__
  / _' | / __| '_ \/ _' | __/ __| '_ \
 | (_| | \__ \ |_) | (_| | || (__| | | |
  \__,_|_|___/ .__/ \__,_|\__\___|_| |_|
             |_|

  News site, transcript cache and MCP server

  Usage: dispatch <command> [options]
         dispatch --help

  MCP server mode requires piped input (or "dispatch mcp").`)
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	// No args + interactive terminal → show banner and exit
	if len(args) < 2 && isTerminal(os.Stdin) {
		printBanner(os.Stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(args) {
		if err := newCLIApp(nil).RunContext(ctx, args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine base directory: %v\n", err)
		return 1
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}

	log := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		return 1
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	svc, err := buildServices(database, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// No args with piped stdin → MCP server
	if len(args) < 2 {
		args = append(args, "mcp")
	}

	app := newCLIApp(&env{
		db:      database,
		cfg:     cfg,
		svc:     svc,
		log:     log,
		baseDir: baseDir,
	})
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
