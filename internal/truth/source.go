// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package truth wraps the flight-dynamics model that provides ground-truth
// vehicle state.
package truth

// Source is a flight-dynamics model exposed through named properties.
// Implementations are not safe for concurrent use; the stepping loop owns
// them exclusively.
type Source interface {
	Get(name string) float64
	Set(name string, value float64)
	// Step advances the model by one fixed timestep.
	Step() error
	// SimTime is the model's own clock, seconds since initialization.
	SimTime() float64
}

// PropertyMap names the properties the bridge reads and writes.
// Units are fixed by the field, whatever the name.
type PropertyMap struct {
	Roll  string `yaml:"roll"`  // rad
	Pitch string `yaml:"pitch"` // rad
	Yaw   string `yaml:"yaw"`   // rad

	Lat string `yaml:"lat"` // deg
	Lon string `yaml:"lon"` // deg
	Alt string `yaml:"alt"` // ft above sea level

	AccelX string `yaml:"accelX"` // specific force, g, body frame
	AccelY string `yaml:"accelY"`
	AccelZ string `yaml:"accelZ"`

	RateP string `yaml:"rateP"` // rad/s, body frame
	RateQ string `yaml:"rateQ"`
	RateR string `yaml:"rateR"`

	VNorth string `yaml:"vNorth"` // ft/s
	VEast  string `yaml:"vEast"`
	VDown  string `yaml:"vDown"`

	Elevator string `yaml:"elevator"` // [-1, 1]
	Steering string `yaml:"steering"` // [-1, 1], aileron or rudder command
	Throttle string `yaml:"throttle"` // [0, 1]
}

// DefaultProperties follows the JSBSim property tree.
func DefaultProperties() PropertyMap {
	return PropertyMap{
		Roll:  "attitude/phi-rad",
		Pitch: "attitude/theta-rad",
		Yaw:   "attitude/psi-rad",

		Lat: "position/lat-geod-deg",
		Lon: "position/long-gc-deg",
		Alt: "position/h-sl-ft",

		AccelX: "accelerations/n-pilot-x-norm",
		AccelY: "accelerations/n-pilot-y-norm",
		AccelZ: "accelerations/n-pilot-z-norm",

		RateP: "velocities/p-rad_sec",
		RateQ: "velocities/q-rad_sec",
		RateR: "velocities/r-rad_sec",

		VNorth: "velocities/v-north-fps",
		VEast:  "velocities/v-east-fps",
		VDown:  "velocities/v-down-fps",

		Elevator: "fcs/elevator-cmd-norm",
		Steering: "fcs/aileron-cmd-norm",
		Throttle: "fcs/throttle-cmd-norm",
	}
}

// WithDefaults fills every empty name from DefaultProperties.
func (p PropertyMap) WithDefaults() PropertyMap {
	d := DefaultProperties()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.Roll, d.Roll)
	fill(&p.Pitch, d.Pitch)
	fill(&p.Yaw, d.Yaw)
	fill(&p.Lat, d.Lat)
	fill(&p.Lon, d.Lon)
	fill(&p.Alt, d.Alt)
	fill(&p.AccelX, d.AccelX)
	fill(&p.AccelY, d.AccelY)
	fill(&p.AccelZ, d.AccelZ)
	fill(&p.RateP, d.RateP)
	fill(&p.RateQ, d.RateQ)
	fill(&p.RateR, d.RateR)
	fill(&p.VNorth, d.VNorth)
	fill(&p.VEast, d.VEast)
	fill(&p.VDown, d.VDown)
	fill(&p.Elevator, d.Elevator)
	fill(&p.Steering, d.Steering)
	fill(&p.Throttle, d.Throttle)
	return p
}
