// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package aplink

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	MsgIDHITLSensors  uint8 = 0x40
	MsgIDHITLCommands uint8 = 0x41

	SensorsPayloadLen  = 12*4 + 2*4 + 2*2
	CommandsPayloadLen = 3 * 2
)

// HITLSensors is the outbound emulated-sensor record. Field order is the
// wire order.
type HITLSensors struct {
	Ax, Ay, Az float32
	Gx, Gy, Gz float32
	Mx, My, Mz float32
	BaroASL    float32
	GPSLat     int32
	GPSLon     int32
	OFX, OFY   int16
}

func (m *HITLSensors) ID() uint8 { return MsgIDHITLSensors }

func (m *HITLSensors) MarshalBinary() ([]byte, error) {
	b := make([]byte, SensorsPayloadLen)
	floats := []float32{m.Ax, m.Ay, m.Az, m.Gx, m.Gy, m.Gz, m.Mx, m.My, m.Mz, m.BaroASL}
	off := 0
	for _, f := range floats {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(f))
		off += 4
	}
	// two reserved floats keep the record at twelve
	off += 8
	binary.LittleEndian.PutUint32(b[off:], uint32(m.GPSLat))
	binary.LittleEndian.PutUint32(b[off+4:], uint32(m.GPSLon))
	binary.LittleEndian.PutUint16(b[off+8:], uint16(m.OFX))
	binary.LittleEndian.PutUint16(b[off+10:], uint16(m.OFY))
	return b, nil
}

func (m *HITLSensors) UnmarshalBinary(b []byte) error {
	if len(b) != SensorsPayloadLen {
		return fmt.Errorf("hitl sensors: %w: got %d, want %d", ErrPayloadLength, len(b), SensorsPayloadLen)
	}
	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])) }
	m.Ax, m.Ay, m.Az = f(0), f(1), f(2)
	m.Gx, m.Gy, m.Gz = f(3), f(4), f(5)
	m.Mx, m.My, m.Mz = f(6), f(7), f(8)
	m.BaroASL = f(9)
	m.GPSLat = int32(binary.LittleEndian.Uint32(b[48:]))
	m.GPSLon = int32(binary.LittleEndian.Uint32(b[52:]))
	m.OFX = int16(binary.LittleEndian.Uint16(b[56:]))
	m.OFY = int16(binary.LittleEndian.Uint16(b[58:]))
	return nil
}

// HITLCommands is the inbound actuator record, PWM microseconds.
type HITLCommands struct {
	ElevatorPWM uint16
	RudderPWM   uint16
	ThrottlePWM uint16
}

func (m *HITLCommands) ID() uint8 { return MsgIDHITLCommands }

func (m *HITLCommands) MarshalBinary() ([]byte, error) {
	b := make([]byte, CommandsPayloadLen)
	binary.LittleEndian.PutUint16(b[0:], m.ElevatorPWM)
	binary.LittleEndian.PutUint16(b[2:], m.RudderPWM)
	binary.LittleEndian.PutUint16(b[4:], m.ThrottlePWM)
	return b, nil
}

func (m *HITLCommands) UnmarshalBinary(b []byte) error {
	if len(b) != CommandsPayloadLen {
		return fmt.Errorf("hitl commands: %w: got %d, want %d", ErrPayloadLength, len(b), CommandsPayloadLen)
	}
	m.ElevatorPWM = binary.LittleEndian.Uint16(b[0:])
	m.RudderPWM = binary.LittleEndian.Uint16(b[2:])
	m.ThrottlePWM = binary.LittleEndian.Uint16(b[4:])
	return nil
}
