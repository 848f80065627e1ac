// Package main содержит точку входа воркера регистрации.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/taskflow/internal/app/registrationworker"
	"github.com/magabrotheeeer/taskflow/internal/config"
)

func main() {
	cfg := config.MustLoad()
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting registration worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := registrationworker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize registration worker", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("registration worker stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("registration worker stopped gracefully")
}
