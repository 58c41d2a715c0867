package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/class-booker/internal/config"
	"github.com/example/class-booker/internal/logging"
)

const usage = `Usage: booker <mode>

Modes:
  announce  send today's announcement to the chat once, then exit
  bot       serve chat commands and run the weekly booking on schedule
  bookweek  register every standing class of next week now, then exit
`

func main() {
	envErr := godotenv.Load()
	logger := logging.New(os.Stdout, os.Getenv("BOOKER_LOG_LEVEL"))
	slog.SetDefault(logger)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("failed to read .env file", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, logger)
	stop()
	os.Exit(code)
}

// run executes one mode and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return 0
	}
	mode := strings.ToLower(args[0])
	modes := map[string]func(context.Context, config.Config, io.Writer, *slog.Logger) error{
		"announce": runAnnounce,
		"bot":      runBot,
		"bookweek": runBookWeek,
	}
	fn, ok := modes[mode]
	if !ok {
		fmt.Fprintf(stdout, "Unknown mode: %q\n\n%s", mode, usage)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 1
	}
	logger = logger.With("mode", mode)
	logger.Info("starting", "config", cfg.String())
	if err := fn(ctx, cfg, stdout, logger); err != nil {
		logger.Error("mode failed", "error", err)
		return 1
	}
	return 0
}
