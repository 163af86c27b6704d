// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package truth

import (
	"math"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

const (
	feetToMeters = 0.3048

	// DefaultMinThrottle replaces a zero throttle command; some engine
	// models shut down on an exact zero.
	DefaultMinThrottle = 1e-3
)

// Snapshot is one consistent read of the truth properties after a step.
type Snapshot struct {
	SimTime float64

	Roll, Pitch, Yaw float64 // rad
	Lat, Lon         float64 // deg
	AltFt            float64

	AccelX, AccelY, AccelZ float64 // g
	P, Q, R                float64 // rad/s

	VNorthFps, VEastFps, VDownFps float64
}

// Vehicle converts the snapshot to the visualization state.
func (s Snapshot) Vehicle() state.VehicleState {
	return state.VehicleState{
		SimTime: s.SimTime,
		Roll:    s.Roll * 180 / math.Pi,
		Pitch:   s.Pitch * 180 / math.Pi,
		Yaw:     s.Yaw * 180 / math.Pi,
		Lat:     s.Lat,
		Lon:     s.Lon,
		Alt:     s.AltFt * feetToMeters,
		VNorth:  s.VNorthFps * feetToMeters,
		VEast:   s.VEastFps * feetToMeters,
		VDown:   s.VDownFps * feetToMeters,
	}
}

// Adapter maps bridge types onto a Source's property names.
type Adapter struct {
	src         Source
	props       PropertyMap
	minThrottle float64
}

// WithMinThrottle sets the throttle substituted for a zero command.
func WithMinThrottle(v float64) func(*Adapter) {
	return func(a *Adapter) {
		if v > 0 {
			a.minThrottle = v
		}
	}
}

// NewAdapter wraps src; empty property names take their defaults.
func NewAdapter(src Source, props PropertyMap, options ...func(*Adapter)) *Adapter {
	a := &Adapter{
		src:         src,
		props:       props.WithDefaults(),
		minThrottle: DefaultMinThrottle,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// Source returns the wrapped model.
func (a *Adapter) Source() Source {
	return a.src
}

// ApplyControl writes actuator commands for the next step.
func (a *Adapter) ApplyControl(c state.ControlInput) {
	throttle := c.Throttle
	if throttle < a.minThrottle {
		throttle = a.minThrottle
	}
	a.src.Set(a.props.Elevator, c.Elevator)
	a.src.Set(a.props.Steering, c.Rudder)
	a.src.Set(a.props.Throttle, throttle)
}

// Snapshot reads all truth properties.
func (a *Adapter) Snapshot() Snapshot {
	p := a.props
	g := a.src.Get
	return Snapshot{
		SimTime:   a.src.SimTime(),
		Roll:      g(p.Roll),
		Pitch:     g(p.Pitch),
		Yaw:       g(p.Yaw),
		Lat:       g(p.Lat),
		Lon:       g(p.Lon),
		AltFt:     g(p.Alt),
		AccelX:    g(p.AccelX),
		AccelY:    g(p.AccelY),
		AccelZ:    g(p.AccelZ),
		P:         g(p.RateP),
		Q:         g(p.RateQ),
		R:         g(p.RateR),
		VNorthFps: g(p.VNorth),
		VEastFps:  g(p.VEast),
		VDownFps:  g(p.VDown),
	}
}
