// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package truth

import (
	"fmt"
	"math"
)

const (
	gravity         = 9.80665
	metersPerDegLat = 111_320.0
)

// KinematicConfig sets up the built-in point-mass model.
type KinematicConfig struct {
	Lat, Lon   float64 // deg
	AltFt      float64
	HeadingDeg float64
	GroundFt   float64 // terrain height, ft above sea level

	Dt float64 // seconds per step

	CruiseSpeed  float64 // m/s at full throttle
	MaxAccel     float64 // m/s²
	MaxRollRate  float64 // rad/s at full deflection
	MaxPitchRate float64
	MaxRoll      float64 // rad
	MaxPitch     float64

	Properties PropertyMap
}

// DefaultKinematicConfig matches a small trainer airframe.
func DefaultKinematicConfig() KinematicConfig {
	return KinematicConfig{
		Dt:           0.008,
		CruiseSpeed:  25,
		MaxAccel:     4,
		MaxRollRate:  math.Pi / 2,
		MaxPitchRate: math.Pi / 4,
		MaxRoll:      math.Pi / 4,
		MaxPitch:     math.Pi / 6,
		Properties:   DefaultProperties(),
	}
}

// Kinematic is a point-mass stand-in for a full flight-dynamics engine.
// It flies coordinated turns, has no aerodynamics, and publishes its state
// through the same property names as the real model.
type Kinematic struct {
	cfg   KinematicConfig
	props map[string]float64

	simTime float64

	roll, pitch, yaw float64
	lat, lon, altFt  float64
	speed            float64 // m/s along the flight path
}

// NewKinematic validates cfg and returns a model at its initial conditions.
func NewKinematic(cfg KinematicConfig) (*Kinematic, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("kinematic model: timestep must be positive, got %v", cfg.Dt)
	}
	if cfg.Lat < -90 || cfg.Lat > 90 {
		return nil, fmt.Errorf("kinematic model: latitude %v out of range", cfg.Lat)
	}
	if cfg.Lon < -180 || cfg.Lon > 180 {
		return nil, fmt.Errorf("kinematic model: longitude %v out of range", cfg.Lon)
	}
	cfg.Properties = cfg.Properties.WithDefaults()

	k := &Kinematic{
		cfg:   cfg,
		props: make(map[string]float64),
		lat:   cfg.Lat,
		lon:   cfg.Lon,
		altFt: math.Max(cfg.AltFt, cfg.GroundFt),
		yaw:   cfg.HeadingDeg * math.Pi / 180,
	}
	k.publish(0)
	return k, nil
}

func (k *Kinematic) Get(name string) float64 {
	return k.props[name]
}

func (k *Kinematic) Set(name string, value float64) {
	k.props[name] = value
}

func (k *Kinematic) SimTime() float64 {
	return k.simTime
}

// Step integrates one timestep from the current actuator commands.
func (k *Kinematic) Step() error {
	dt := k.cfg.Dt
	p := k.cfg.Properties

	elevator := clamp(k.props[p.Elevator], -1, 1)
	steering := clamp(k.props[p.Steering], -1, 1)
	throttle := clamp(k.props[p.Throttle], 0, 1)

	prevSpeed := k.speed
	k.speed = approach(k.speed, throttle*k.cfg.CruiseSpeed, k.cfg.MaxAccel, dt)
	accel := (k.speed - prevSpeed) / dt

	rollRate := steering * k.cfg.MaxRollRate
	pitchRate := elevator * k.cfg.MaxPitchRate

	k.roll = clamp(k.roll+rollRate*dt, -k.cfg.MaxRoll, k.cfg.MaxRoll)
	k.pitch = clamp(k.pitch+pitchRate*dt, -k.cfg.MaxPitch, k.cfg.MaxPitch)

	// coordinated turn
	yawRate := 0.0
	if k.speed > 1 {
		yawRate = gravity / k.speed * math.Tan(k.roll)
	}
	k.yaw = wrapAngle(k.yaw + yawRate*dt)

	vn := k.speed * math.Cos(k.pitch) * math.Cos(k.yaw)
	ve := k.speed * math.Cos(k.pitch) * math.Sin(k.yaw)
	vd := -k.speed * math.Sin(k.pitch)

	k.lat = clamp(k.lat+vn*dt/metersPerDegLat, -90, 90)
	k.lon = wrapLon(k.lon + ve*dt/(metersPerDegLat*math.Cos(k.lat*math.Pi/180)))
	k.altFt += -vd * dt / feetToMeters
	if k.altFt < k.cfg.GroundFt {
		k.altFt = k.cfg.GroundFt
		vd = 0
		if k.pitch < 0 {
			k.pitch = 0
		}
	}

	k.simTime += dt

	k.props[p.RateP] = rollRate
	k.props[p.RateQ] = pitchRate
	k.props[p.RateR] = yawRate * math.Cos(k.pitch) * math.Cos(k.roll)
	k.props[p.VNorth] = vn / feetToMeters
	k.props[p.VEast] = ve / feetToMeters
	k.props[p.VDown] = vd / feetToMeters
	k.publish(accel / gravity)
	return nil
}

// publish writes attitude, position and specific force. The specific force
// is the gravity reaction plus the along-track acceleration.
func (k *Kinematic) publish(accelG float64) {
	p := k.cfg.Properties
	k.props[p.Roll] = k.roll
	k.props[p.Pitch] = k.pitch
	k.props[p.Yaw] = k.yaw
	k.props[p.Lat] = k.lat
	k.props[p.Lon] = k.lon
	k.props[p.Alt] = k.altFt

	k.props[p.AccelX] = math.Sin(k.pitch) + accelG
	k.props[p.AccelY] = -math.Cos(k.pitch) * math.Sin(k.roll)
	k.props[p.AccelZ] = -math.Cos(k.pitch) * math.Cos(k.roll)
}

func approach(cur, des, amax, dt float64) float64 {
	diff := des - cur
	maxStep := amax * dt
	if diff > maxStep {
		return cur + maxStep
	}
	if diff < -maxStep {
		return cur - maxStep
	}
	return des
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// wrapLon folds a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
