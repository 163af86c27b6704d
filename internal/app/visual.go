// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/hitl_bridge/internal/config"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// visual feeds external viewers over MQTT and takes operator control input
// back from them.
type visual struct {
	topics   config.MQTTTopics
	interval time.Duration
	publish  func(topic string, payload []byte) error
	vehicle  *exchange.Slot[state.VehicleState]
	sensors  *exchange.Slot[state.SimulatedSensors]
	manual   *exchange.Slot[state.ControlInput]
	logger   *slog.Logger
}

func newVisual(cfg config.MQTTConfig, publish func(string, []byte) error, ex *exchange.Exchange, logger *slog.Logger) *visual {
	interval := config.Ms(cfg.PublishIntervalMs)
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &visual{
		topics:   cfg.Topics,
		interval: interval,
		publish:  publish,
		vehicle:  ex.Vehicle.Subscribe(),
		sensors:  ex.Sensors.Subscribe(),
		manual:   &ex.Controls.Manual,
		logger:   logger,
	}
}

// Run publishes until ctx is done. Publish failures are logged; the
// bridge keeps running without viewers.
func (v *visual) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v.publishLatest()
		}
	}
}

func (v *visual) publishLatest() {
	if vs, ok := v.vehicle.Consume(); ok {
		if err := publishJSON(v.publish, v.topics.Vehicle, vs); err != nil {
			v.logger.Warn("vehicle publish failed", slog.Any("error", err))
		}
	}
	if ss, ok := v.sensors.Consume(); ok {
		if err := publishJSON(v.publish, v.topics.Sensors, ss); err != nil {
			v.logger.Warn("sensors publish failed", slog.Any("error", err))
		}
	}
}

// handleControl is the MQTT callback for the operator control topic.
func (v *visual) handleControl(_ mqtt.Client, msg mqtt.Message) {
	var c state.ControlInput
	if err := json.Unmarshal(msg.Payload(), &c); err != nil {
		v.logger.Warn("control unmarshal error", slog.String("topic", msg.Topic()), slog.Any("error", err))
		return
	}
	v.manual.Publish(c.Clamp())
}
