// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	var configPath string
	flag.StringVar(&configPath, "config", "hitl_config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.InitGlobal(configPath); err != nil {
		logger.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	cfg := config.Get()
	if err := logLevel.UnmarshalText([]byte(cfg.Settings.LogLevel)); err != nil {
		logger.Warn("invalid log level, using INFO", slog.String("level", cfg.Settings.LogLevel))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HITL bridge", slog.Float64("step_hz", cfg.Sim.StepHz), slog.String("serial", cfg.Serial.Port))

	if err := app.RunBridge(ctx, cfg, logger); err != nil {
		logger.Error("bridge stopped", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
	logger.Info("bridge stopped")
}
