package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/hitl_bridge/internal/app"
	"github.com/relabs-tech/hitl_bridge/internal/config"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	configPath := flag.String("config", "hitl_config.yaml", "Path to the configuration file")
	port := flag.String("port", "", "NMEA serial port to read (defaults to gps.port)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := config.Get()
	_ = logLevel.UnmarshalText([]byte(cfg.Settings.LogLevel))

	if *port == "" {
		*port = cfg.GPS.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunGPSMonitor(ctx, cfg, *port, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
}
