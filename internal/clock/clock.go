// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock paces the truth model against the wall clock.
package clock

import (
	"context"
	"time"
)

// DefaultIdleWait is the pause between polls when the truth model is ahead
// of the wall clock.
const DefaultIdleWait = 200 * time.Microsecond

// ShouldStep reports whether the truth model, whose own clock reads simTime
// seconds, may advance by one step after wallElapsed of real time.
func ShouldStep(simTime float64, wallElapsed time.Duration) bool {
	return wallElapsed.Seconds() >= simTime
}

// Clock decides once per poll whether a truth step is due.
//
// Each successful step moves the truth clock forward by one timestep, so
// the model never leads the wall clock by more than one step. When it lags
// behind, Poll keeps returning true until it has caught up; steps are
// never skipped or merged.
type Clock struct {
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	idleWait time.Duration
	start    time.Time
}

// WithNow injects the wall-clock source, for tests.
func WithNow(now func() time.Time) func(*Clock) {
	return func(c *Clock) {
		c.now = now
	}
}

// WithSleep injects the idle wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) func(*Clock) {
	return func(c *Clock) {
		c.sleep = sleep
	}
}

// WithIdleWait sets the pause used by Idle.
func WithIdleWait(d time.Duration) func(*Clock) {
	return func(c *Clock) {
		if d > 0 {
			c.idleWait = d
		}
	}
}

// New returns a Clock whose wall time starts now.
func New(options ...func(*Clock)) *Clock {
	c := &Clock{
		now:      time.Now,
		sleep:    sleepContext,
		idleWait: DefaultIdleWait,
	}
	for _, option := range options {
		option(c)
	}
	c.start = c.now()
	return c
}

// Reset restarts the wall-clock origin.
func (c *Clock) Reset() {
	c.start = c.now()
}

// Align moves the wall-clock origin so that a model already at simTime is
// exactly on schedule.
func (c *Clock) Align(simTime float64) {
	c.start = c.now().Add(-time.Duration(simTime * float64(time.Second)))
}

// Elapsed returns wall time since the clock started.
func (c *Clock) Elapsed() time.Duration {
	return c.now().Sub(c.start)
}

// Poll reports whether a truth model at simTime should step now.
func (c *Clock) Poll(simTime float64) bool {
	return ShouldStep(simTime, c.Elapsed())
}

// Lag returns how far the truth clock trails the wall clock. Negative
// values mean the model is ahead.
func (c *Clock) Lag(simTime float64) time.Duration {
	return c.Elapsed() - time.Duration(simTime*float64(time.Second))
}

// Idle waits one idle period or until ctx is done.
func (c *Clock) Idle(ctx context.Context) error {
	return c.sleep(ctx, c.idleWait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
