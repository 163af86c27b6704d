// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

const (
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultMaxBatchSize   = 50
)

// Recorder samples the exchange at a fixed interval and writes batches to
// the store.
type Recorder struct {
	store     *Store
	session   uuid.UUID
	vehicle   *exchange.Slot[state.VehicleState]
	sensors   *exchange.Slot[state.SimulatedSensors]
	source    func() string
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger

	written uint64
}

func WithSampleInterval(d time.Duration) func(*Recorder) {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithMaxBatchSize(n int) func(*Recorder) {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithSourceFunc reports which control source was live for each sample.
func WithSourceFunc(fn func() string) func(*Recorder) {
	return func(r *Recorder) {
		r.source = fn
	}
}

func WithLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func New(store *Store, session uuid.UUID, ex *exchange.Exchange, options ...func(*Recorder)) *Recorder {
	r := &Recorder{
		store:     store,
		session:   session,
		vehicle:   ex.Vehicle.Subscribe(),
		sensors:   ex.Sensors.Subscribe(),
		source:    func() string { return string(exchange.SourceNone) },
		interval:  DefaultSampleInterval,
		batchSize: DefaultMaxBatchSize,
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Written returns the number of samples committed so far. Only meaningful
// after Run returned.
func (r *Recorder) Written() uint64 {
	return r.written
}

// Run records until ctx is done. Buffered samples are flushed before it
// returns.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]Sample, 0, r.batchSize)
	var lastSensors state.SimulatedSensors

	r.logger.Info("recording", slog.String("session", r.session.String()))

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := r.flush(flushCtx, batch)
			cancel()
			if err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
		}

		if s, ok := r.sensors.Consume(); ok {
			lastSensors = s
		}
		v, ok := r.vehicle.Consume()
		if !ok {
			continue
		}

		batch = append(batch, Sample{
			SimTime:  v.SimTime,
			WallTime: r.now(),
			Source:   r.source(),
			Sensors:  lastSensors,
			Vehicle:  v,
		})
		if len(batch) < r.batchSize {
			continue
		}
		if err := r.flush(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
	}
}

func (r *Recorder) flush(ctx context.Context, batch []Sample) error {
	if len(batch) == 0 {
		return nil
	}
	if err := r.store.InsertSamples(ctx, r.session, batch); err != nil {
		return fmt.Errorf("recording session %s: %w", r.session, err)
	}
	r.written += uint64(len(batch))
	r.logger.Debug("samples written", slog.Int("count", len(batch)))
	return nil
}
