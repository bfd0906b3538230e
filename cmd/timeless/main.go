package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/db"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/logging"
	"github.com/hpungsan/timeless/internal/mcp"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"create": true, "list": true, "fetch": true, "update": true,
	"seal": true, "delete": true, "export": true, "import": true,
	"plan": true, "start": true, "generate-message": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _____ _                _
  |_   _(_)_ __ ___   ___| | ___  ___ ___
    | | | | '_ ' _ \ / _ \ |/ _ \/ __/ __|
    | | | | | | | | |  __/ |  __/\__ \__ \
    |_| |_|_| |_| |_|\___|_|\___||___/___/

  Letters and capsules for the future

  Usage: timeless <command> [options]
         timeless serve     (web UI)
         timeless --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal(os.Stdin) {
		printBanner()
		return
	}

	// Handle --help/--version before opening the store
	if isHelpOrVersion() {
		if err := newCLIApp(stdEnv()).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		if te := errors.As(err); te.Code != errors.ErrInternal {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", te.Code, te.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".timeless")

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("ignoring unknown disabled_tools entries", "tools", unknown)
	}

	lock, err := store.AcquireLock(baseDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	database, err := db.Init(baseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	s := store.New(db.NewKV(database), store.Options{
		Logger:     logger,
		ConfirmTTL: cfg.ConfirmTTL(),
	})
	if res := s.Load(context.Background()); res.Corrupt {
		logger.Warn("stored capsules could not be read; a backup was kept and the collection starts empty")
	}

	gen := newGenerator(cfg, logger)
	e := stdEnv()
	e.store = s
	e.builder = ops.NewBuilder(s, gen, cfg, logger)
	e.gen = gen
	e.cfg = cfg
	e.logger = logger

	// CLI mode: known subcommand
	if isCLIMode() {
		return newCLIApp(e).Run(os.Args)
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal(os.Stdin) {
		return fmt.Errorf("unknown command %q; run 'timeless --help' for usage", os.Args[1])
	}

	// MCP server mode (default)
	return mcp.Run(mcp.Deps{
		Store:     s,
		Builder:   e.builder,
		Generator: gen,
		Config:    cfg,
		Logger:    logger,
		Version:   Version,
	})
}

// newGenerator picks the content backend: a remote gateway when a URL is
// configured, OpenAI in-process when a key is present, otherwise none.
func newGenerator(cfg *config.Config, logger *slog.Logger) gateway.Generator {
	if cfg.Gateway.URL != "" {
		logger.Debug("using content gateway", "url", cfg.Gateway.URL)
		return gateway.NewClient(cfg.Gateway.URL, cfg.GatewayTimeout(), logger)
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Debug("no content gateway configured; AI features use fallbacks")
		return gateway.Unavailable{}
	}
	backend, err := gateway.NewOpenAIBackend(gateway.OpenAIOptions{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		TextModel:   cfg.OpenAI.TextModel,
		ImageModel:  cfg.OpenAI.ImageModel,
		SpeechModel: cfg.OpenAI.SpeechModel,
		Voice:       cfg.OpenAI.Voice,
		Timeout:     cfg.GatewayTimeout(),
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("OpenAI backend unavailable", "error", err)
		return gateway.Unavailable{}
	}
	return backend
}
