// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/aplink"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

const DefaultTransmitInterval = 5 * time.Millisecond

// Transmitter writes the newest sensor snapshot to the autopilot once per
// interval. Snapshots older than the newest are never sent.
type Transmitter struct {
	w        io.Writer
	sensors  *exchange.Slot[state.SimulatedSensors]
	interval time.Duration
	stats    *Stats
	logger   *slog.Logger
}

func WithTransmitInterval(d time.Duration) func(*Transmitter) {
	return func(t *Transmitter) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithTransmitStats(s *Stats) func(*Transmitter) {
	return func(t *Transmitter) {
		t.stats = s
	}
}

func WithTransmitLogger(logger *slog.Logger) func(*Transmitter) {
	return func(t *Transmitter) {
		t.logger = logger
	}
}

func NewTransmitter(w io.Writer, sensors *exchange.Slot[state.SimulatedSensors], options ...func(*Transmitter)) *Transmitter {
	t := &Transmitter{
		w:        w,
		sensors:  sensors,
		interval: DefaultTransmitInterval,
		stats:    &Stats{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Run sends until ctx is done or a write fails.
func (t *Transmitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("transmitter started", slog.Duration("interval", t.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snap, ok := t.sensors.Consume()
		if !ok {
			continue
		}

		frame, err := aplink.Encode(ToWire(snap))
		if err != nil {
			return err
		}
		n, err := t.w.Write(frame)
		t.stats.BytesSent.Add(uint64(n))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("write sensor frame: %w", err)
		}
		t.stats.FramesSent.Add(1)
	}
}

// ToWire narrows a snapshot to the link record.
func ToWire(s state.SimulatedSensors) *aplink.HITLSensors {
	return &aplink.HITLSensors{
		Ax: float32(s.Ax), Ay: float32(s.Ay), Az: float32(s.Az),
		Gx: float32(s.Gx), Gy: float32(s.Gy), Gz: float32(s.Gz),
		Mx: float32(s.Mx), My: float32(s.My), Mz: float32(s.Mz),
		BaroASL: float32(s.BaroASL),
		GPSLat:  s.GPSLat,
		GPSLon:  s.GPSLon,
		OFX:     s.OFX,
		OFY:     s.OFY,
	}
}
