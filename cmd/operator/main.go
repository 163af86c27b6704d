package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/app"
	"github.com/relabs-tech/hitl_bridge/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	configPath := flag.String("config", "hitl_config.yaml", "Path to the configuration file")
	interval := flag.Duration("interval", 100*time.Millisecond, "Time between control messages")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunOperator(ctx, config.Get(), *interval, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
}
