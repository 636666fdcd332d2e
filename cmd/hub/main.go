package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/server"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/config"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/logging"
)

func main() {
	bootLogger := logging.New(logging.Options{Level: "info"})

	cfg, err := config.Load(bootLogger, "config")
	if err != nil {
		bootLogger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Dir: cfg.Logging.Dir})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := server.NewApp(logger, ctx, cfg)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
