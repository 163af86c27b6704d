// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"errors"

	"github.com/relabs-tech/hitl_bridge/internal/aplink"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// ErrDegenerateRange is returned by Remap when the source range is empty.
var ErrDegenerateRange = errors.New("degenerate source range")

// Remap maps x linearly from [a1, a2] to [b1, b2]. Values outside the
// source range extrapolate.
func Remap(x, a1, a2, b1, b2 float64) (float64, error) {
	if a1 == a2 {
		return 0, ErrDegenerateRange
	}
	return b1 + (x-a1)*(b2-b1)/(a2-a1), nil
}

// PWMRange is the pulse width span that maps onto full actuator travel.
type PWMRange struct {
	Min, Max float64
}

// DefaultPWMRange is the nominal 1000..2000 µs RC span.
var DefaultPWMRange = PWMRange{Min: 1000, Max: 2000}

// ToControl converts a command record into a clamped ControlInput.
func (r PWMRange) ToControl(cmd aplink.HITLCommands) (state.ControlInput, error) {
	if r.Min == r.Max {
		return state.ControlInput{}, ErrDegenerateRange
	}
	return state.ControlInput{
		Elevator: r.remap(cmd.ElevatorPWM, -1, 1),
		Rudder:   r.remap(cmd.RudderPWM, -1, 1),
		Throttle: r.remap(cmd.ThrottlePWM, 0, 1),
	}.Clamp(), nil
}

// remap assumes a non-empty range.
func (r PWMRange) remap(pwm uint16, lo, hi float64) float64 {
	return lo + (float64(pwm)-r.Min)*(hi-lo)/(r.Max-r.Min)
}
