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
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	configPath := flag.String("config", "hitl_config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HITL web viewer (MQTT subscriber)")
	if err := app.RunWeb(ctx, config.Get(), logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
}
