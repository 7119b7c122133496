package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/felixmde/beesync/internal/activitywatch"
	"github.com/felixmde/beesync/internal/beeminder"
	"github.com/felixmde/beesync/internal/config"
	"github.com/felixmde/beesync/internal/engine"
	"github.com/felixmde/beesync/internal/modules"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "config.toml", "Path to configuration file (TOML)")
	envFile := flag.String("env-file", ".env", "Path to env file with secrets (optional)")
	flag.Parse()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting beesync")

	// Load secrets from the env file if one is present
	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			slog.Error("failed to load env file", "error", err, "env_file", *envFile)
			os.Exit(1)
		}
	}

	// Load configuration
	slog.Info("loading configuration", "config_file", *configFile)
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Reconfigure logging from the file
	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Cancel the run on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := cfg.Beeminder.Key.Resolve(ctx)
	if err != nil {
		slog.Error("failed to resolve beeminder key", "error", err)
		os.Exit(1)
	}

	var opts []beeminder.Option
	if cfg.Beeminder.BaseURL != "" {
		opts = append(opts, beeminder.WithBaseURL(cfg.Beeminder.BaseURL))
	}
	goals := beeminder.New(cfg.Beeminder.Username, token, opts...)

	mods := buildModules(cfg)
	if len(mods) == 0 {
		slog.Warn("no modules configured, nothing to sync")
		return
	}

	summaries := engine.New(goals, logger).Run(ctx, mods)

	for _, summary := range summaries {
		if summary.Failed() {
			slog.Error("module sync failed",
				"module", summary.Module,
				"created", summary.Created,
				"error", errors.Join(summary.Errors...))
			continue
		}
		slog.Info("module synced",
			"module", summary.Module,
			"discovered", summary.Discovered,
			"skipped", summary.Skipped,
			"created", summary.Created)
	}

	slog.Info("beesync finished")
}

// buildModules assembles a module per configured section, in a fixed
// order.
func buildModules(cfg *config.Config) []engine.Module {
	var mods []engine.Module
	if cfg.CleanTube != nil {
		events := activitywatch.New(cfg.CleanTube.ActivityWatchBaseURL)
		mods = append(mods, modules.NewCleanTube(*cfg.CleanTube, events))
	}
	if cfg.CleanView != nil {
		events := activitywatch.New(cfg.CleanView.ActivityWatchBaseURL)
		mods = append(mods, modules.NewCleanView(*cfg.CleanView, events, nil))
	}
	if cfg.Focusmate != nil {
		mods = append(mods, modules.NewFocusmate(*cfg.Focusmate, nil))
	}
	if cfg.Fatebook != nil {
		mods = append(mods, modules.NewFatebook(*cfg.Fatebook, nil))
	}
	if cfg.Category != nil {
		mods = append(mods, modules.NewCategory(*cfg.Category, nil))
	}
	if cfg.GitHub != nil {
		mods = append(mods, modules.NewGitHub(*cfg.GitHub, nil))
	}
	return mods
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
