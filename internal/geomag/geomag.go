// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geomag provides the Earth's magnetic field for the synthesized
// magnetometer.
package geomag

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidPosition is returned for coordinates the model cannot evaluate.
var ErrInvalidPosition = errors.New("invalid position for geomagnetic model")

// FieldModel returns the local field vector in nanotesla, north-east-down.
type FieldModel interface {
	FieldNED(latDeg, lonDeg, altM float64) (r3.Vec, error)
}

// Reference radius of the geomagnetic reference field, km.
const earthRadiusKm = 6371.2

// Coefficients holds the degree-1 Gauss coefficients, nT.
type Coefficients struct {
	G10, G11, H11 float64
}

// IGRF2020 is the degree-1 part of IGRF-13 at epoch 2020.0.
var IGRF2020 = Coefficients{G10: -29404.8, G11: -1450.9, H11: 4652.5}

// Dipole is a tilted-dipole field model. It ignores the higher harmonics,
// so declination is only good to a few degrees, which is enough for a
// noiseless heading reference.
type Dipole struct {
	c Coefficients
}

// NewDipole returns a dipole model with the given coefficients.
func NewDipole(c Coefficients) *Dipole {
	return &Dipole{c: c}
}

// FieldNED evaluates the dipole at a geodetic position. Latitude is used
// as geocentric, altitude is above the reference sphere.
func (d *Dipole) FieldNED(latDeg, lonDeg, altM float64) (r3.Vec, error) {
	if !finite(latDeg) || !finite(lonDeg) || !finite(altM) {
		return r3.Vec{}, fmt.Errorf("%w: lat=%v lon=%v alt=%v", ErrInvalidPosition, latDeg, lonDeg, altM)
	}
	if latDeg < -90 || latDeg > 90 || lonDeg < -180 || lonDeg > 360 {
		return r3.Vec{}, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidPosition, latDeg, lonDeg)
	}

	r := earthRadiusKm + altM/1000
	if r <= 0 {
		return r3.Vec{}, fmt.Errorf("%w: altitude %v m below model origin", ErrInvalidPosition, altM)
	}
	scale := math.Pow(earthRadiusKm/r, 3)

	colat := (90 - latDeg) * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinT, cosT := math.Sincos(colat)
	sinL, cosL := math.Sincos(lon)

	equatorial := d.c.G11*cosL + d.c.H11*sinL

	br := 2 * scale * (d.c.G10*cosT + equatorial*sinT)
	bt := scale * (d.c.G10*sinT - equatorial*cosT)
	bp := scale * (d.c.G11*sinL - d.c.H11*cosL)

	return r3.Vec{X: -bt, Y: bp, Z: -br}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
