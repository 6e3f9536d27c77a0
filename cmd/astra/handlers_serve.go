package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astrarelay/astra/internal/channels"
	"github.com/astrarelay/astra/internal/config"
	"github.com/astrarelay/astra/internal/lifecycle"
	"github.com/astrarelay/astra/internal/plugins"
)

// runServe loads config, validates it, wires the lifecycle coordinator, and
// blocks until a shutdown signal arrives or the coordinator fails to start.
func runServe(ctx context.Context, configPath string, debug bool) error {
	if debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	logger := slog.Default()

	logger.Info("starting astra runtime", "version", version, "commit", commit, "config", configPath, "debug", debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := plugins.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("plugin validation failed: %w", err)
	}

	logger.Info("configuration loaded", "llm_provider", cfg.LLM.DefaultProvider)

	registry := channels.NewRegistry()
	registerCLIAdapter(registry, cfg)

	coordinator, err := lifecycle.New(ctx, cfg, lifecycle.Options{
		Channels: registry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coordinator.Start(runCtx)
	logger.Info("astra runtime started")

	<-runCtx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := coordinator.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("astra runtime stopped cleanly")
	return nil
}

// registerCLIAdapter wires a console CLIAdapter under platform id "cli" when
// the operator enabled it via channels.platform_enable, so `astra serve` can
// double as a local chat session without any network adapter configured.
func registerCLIAdapter(registry *channels.Registry, cfg *config.Config) {
	if !cfg.Channels.EnableCLI {
		return
	}
	adapter := channels.NewCLIAdapter("cli", "cli-console", os.Stdin, os.Stdout)
	registry.Register(adapter)
}
