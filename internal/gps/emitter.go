// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// Emitter plays the part of a GPS receiver: it writes GGA and RMC
// sentences for the current vehicle state at a fixed rate.
type Emitter struct {
	w       io.Writer
	vehicle *exchange.Slot[state.VehicleState]
	period  time.Duration
	now     func() time.Time
	onFix   func(Fix)
	logger  *slog.Logger
}

func WithRate(hz float64) func(*Emitter) {
	return func(e *Emitter) {
		if hz > 0 {
			e.period = time.Duration(float64(time.Second) / hz)
		}
	}
}

func WithNow(now func() time.Time) func(*Emitter) {
	return func(e *Emitter) {
		e.now = now
	}
}

// WithFixHandler is called with every emitted fix.
func WithFixHandler(fn func(Fix)) func(*Emitter) {
	return func(e *Emitter) {
		e.onFix = fn
	}
}

func WithLogger(logger *slog.Logger) func(*Emitter) {
	return func(e *Emitter) {
		e.logger = logger
	}
}

func NewEmitter(w io.Writer, vehicle *exchange.Slot[state.VehicleState], options ...func(*Emitter)) *Emitter {
	e := &Emitter{
		w:       w,
		vehicle: vehicle,
		period:  200 * time.Millisecond,
		now:     time.Now,
		onFix:   func(Fix) {},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Run emits until ctx is done or a write fails. Nothing is written before
// the first vehicle state arrives; afterwards the last known state is
// repeated like a receiver holding its fix.
func (e *Emitter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	var last state.VehicleState
	have := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if v, ok := e.vehicle.Consume(); ok {
			last, have = v, true
		}
		if !have {
			continue
		}

		fix := FixFromVehicle(last, e.now())
		if _, err := io.WriteString(e.w, GGA(fix)+"\r\n"+RMC(fix)+"\r\n"); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("write nmea: %w", err)
		}
		e.onFix(fix)
	}
}
