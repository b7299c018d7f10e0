package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/a-essam23/go-devicehub/internal/engine"
	"github.com/a-essam23/go-devicehub/internal/server"
	"github.com/a-essam23/go-devicehub/pkg/config"
	"github.com/a-essam23/go-devicehub/pkg/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default ./config.yaml)")
	return cmd
}

func serve(parent context.Context, configPath string) error {
	bootLogger := logging.New(logging.LevelInfo)

	cfg, err := config.Load(bootLogger, configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	registry := engine.New(logger)
	registry.RegisterCore()
	if err := config.CompilePipelines(cfg, registry.GetActionFunc, registry.GetModifierFunc); err != nil {
		return fmt.Errorf("failed to compile event pipelines: %w", err)
	}
	logger.Info("Event pipelines compiled", slog.Int("events", len(cfg.Pipelines)))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := server.NewApp(logger, ctx, cfg, registry)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		return err
	}
	logger.Info("Application shut down successfully.")
	return nil
}
