// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package exchange

import (
	"sync/atomic"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// ControlSource tells where the live control input of a step came from.
type ControlSource string

const (
	SourceNone   ControlSource = "none"
	SourceLink   ControlSource = "link"
	SourceManual ControlSource = "manual"
)

// Controls selects the live ControlInput for each truth step.
//
// Once the link has delivered a command it owns the actuators: manual
// input is drained but ignored until the link is released. Until then the
// newest manual input wins. With nothing new from either side the last
// applied command stays live.
type Controls struct {
	Link   Slot[state.ControlInput]
	Manual Slot[state.ControlInput]

	linkSeen atomic.Bool

	// touched only by the stepping loop
	current state.ControlInput
	source  ControlSource
}

// Next returns the command to apply on the coming step and its origin.
// Must only be called from the loop that steps the truth source.
func (c *Controls) Next() (state.ControlInput, ControlSource) {
	manual, haveManual := c.Manual.Consume()

	if link, ok := c.Link.Consume(); ok {
		c.linkSeen.Store(true)
		c.current = link
		c.source = SourceLink
		return c.current, c.source
	}

	if !c.linkSeen.Load() && haveManual {
		c.current = manual
		c.source = SourceManual
	}

	if c.source == "" {
		c.source = SourceNone
	}
	return c.current, c.source
}

// ReleaseLink hands the actuators back to manual input after the link has
// failed. Any link command not yet applied is discarded. Safe to call from
// any goroutine.
func (c *Controls) ReleaseLink() {
	c.linkSeen.Store(false)
	c.Link.Consume()
}

// LinkActive reports whether a link command has ever been received.
// Safe to call from any goroutine.
func (c *Controls) LinkActive() bool {
	return c.linkSeen.Load()
}

// Exchange bundles every cross-loop channel of the bridge.
type Exchange struct {
	Controls Controls
	Sensors  Fanout[state.SimulatedSensors]
	Vehicle  Fanout[state.VehicleState]
}

// New returns an Exchange with neutral startup control.
func New() *Exchange {
	ex := &Exchange{}
	ex.Controls.current = state.NeutralControl()
	return ex
}
