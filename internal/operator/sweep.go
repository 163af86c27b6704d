// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package operator generates scripted stick input for flying the bridge
// without an autopilot or a person at the controls.
package operator

import (
	"math"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// Source yields one operator command per call.
type Source interface {
	Next() state.ControlInput
}

// Sweep weaves gently while holding a cruise throttle.
type Sweep struct {
	start time.Time
	now   func() time.Time

	Throttle      float64
	RudderAmp     float64
	ElevatorAmp   float64
	PeriodSeconds float64
}

// NewSweep creates a sweep that starts now.
func NewSweep(now func() time.Time) *Sweep {
	if now == nil {
		now = time.Now
	}
	return &Sweep{
		start:         now(),
		now:           now,
		Throttle:      0.6,
		RudderAmp:     0.5,
		ElevatorAmp:   0.2,
		PeriodSeconds: 20,
	}
}

func (s *Sweep) Next() state.ControlInput {
	elapsed := s.now().Sub(s.start).Seconds()
	w := 2 * math.Pi / s.PeriodSeconds

	return state.ControlInput{
		Elevator: s.ElevatorAmp * math.Cos(elapsed*w*0.7),
		Rudder:   s.RudderAmp * math.Sin(elapsed*w),
		Throttle: s.Throttle,
	}.Clamp()
}
