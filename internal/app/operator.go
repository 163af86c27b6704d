// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/operator"
)

// runOperator publishes src's commands on topic every interval until ctx
// is done.
func runOperator(ctx context.Context, src operator.Source, publish func(string, []byte) error, topic string, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		c := src.Next()
		if err := publishJSON(publish, topic, c); err != nil {
			logger.Warn("operator publish error", slog.Any("error", err))
			continue
		}
		logger.Debug("published control", slog.String("control", formatControl(c)))
	}
}

// RunOperator flies a scripted sweep through the bridge's manual control
// topic.
func RunOperator(ctx context.Context, cfg *config.Config, interval time.Duration, logger *slog.Logger) error {
	client, err := connectMQTT(cfg.MQTT, "operator")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("operator: publishing scripted control", slog.String("topic", cfg.MQTT.Topics.Control))

	err = runOperator(ctx, operator.NewSweep(nil), mqttPublisher(client, false), cfg.MQTT.Topics.Control, interval, logger)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
