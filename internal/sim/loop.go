// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim runs the truth model in real time and publishes vehicle state
// and emulated sensors after every step.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/relabs-tech/hitl_bridge/internal/clock"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/sensors"
	"github.com/relabs-tech/hitl_bridge/internal/truth"
)

const DefaultMaxConsecutiveFaults = 50

// ErrTooManyFaults stops the loop when sensor synthesis keeps failing.
var ErrTooManyFaults = errors.New("too many consecutive sensor faults")

// Stats counts loop activity. Safe to read from any goroutine.
type Stats struct {
	Steps  atomic.Uint64
	Faults atomic.Uint64
	// wall clock lead over the truth model, nanoseconds
	Lag atomic.Int64
	// last control origin, an exchange.ControlSource
	Source atomic.Value
}

// Loop owns the truth source; nothing else may touch it while Run is
// active.
type Loop struct {
	clock     *clock.Clock
	adapter   *truth.Adapter
	synth     *sensors.Synthesizer
	ex        *exchange.Exchange
	maxFaults int
	stats     Stats
	logger    *slog.Logger
}

func WithClock(c *clock.Clock) func(*Loop) {
	return func(l *Loop) {
		l.clock = c
	}
}

func WithMaxConsecutiveFaults(n int) func(*Loop) {
	return func(l *Loop) {
		if n > 0 {
			l.maxFaults = n
		}
	}
}

func WithLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger
	}
}

func New(adapter *truth.Adapter, synth *sensors.Synthesizer, ex *exchange.Exchange, options ...func(*Loop)) *Loop {
	l := &Loop{
		adapter:   adapter,
		synth:     synth,
		ex:        ex,
		maxFaults: DefaultMaxConsecutiveFaults,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(l)
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	l.stats.Source.Store(exchange.SourceNone)
	return l
}

// Stats exposes the loop counters.
func (l *Loop) Stats() *Stats {
	return &l.stats
}

// Run steps the truth model whenever the wall clock has caught up with it
// and idles otherwise. It returns ctx.Err() on cancellation, the truth
// model's error if a step fails, or ErrTooManyFaults.
func (l *Loop) Run(ctx context.Context) error {
	src := l.adapter.Source()
	l.clock.Align(src.SimTime())
	consecutive := 0

	l.logger.Info("simulation loop started", slog.Float64("sim_time", src.SimTime()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		simTime := src.SimTime()
		if !l.clock.Poll(simTime) {
			if err := l.clock.Idle(ctx); err != nil {
				return err
			}
			continue
		}
		l.stats.Lag.Store(int64(l.clock.Lag(simTime)))

		ok, err := l.step(src)
		if err != nil {
			return err
		}
		if ok {
			consecutive = 0
			continue
		}

		consecutive++
		if consecutive >= l.maxFaults {
			return fmt.Errorf("%w: %d in a row at sim time %.3fs", ErrTooManyFaults, consecutive, src.SimTime())
		}
	}
}

// step advances the model once. It reports false when the sensor snapshot
// for this step had to be dropped.
func (l *Loop) step(src truth.Source) (bool, error) {
	ctl, origin := l.ex.Controls.Next()
	l.stats.Source.Store(origin)

	l.adapter.ApplyControl(ctl)
	if err := src.Step(); err != nil {
		return false, fmt.Errorf("truth step at %.3fs: %w", src.SimTime(), err)
	}
	l.stats.Steps.Add(1)

	snap := l.adapter.Snapshot()
	l.ex.Vehicle.Publish(snap.Vehicle())

	out, err := l.synth.Synthesize(snap)
	if err != nil {
		l.stats.Faults.Add(1)
		l.logger.Warn("sensor synthesis failed, snapshot dropped",
			slog.Float64("sim_time", snap.SimTime),
			slog.Any("error", err))
		return false, nil
	}
	l.ex.Sensors.Publish(out)
	return true, nil
}
