// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package aplink frames messages exchanged with the autopilot.
//
// Frame layout:
//
//	0xA5 | len | msg_id | payload[len] | crc16 (LE)
//
// The CRC is CRC-16/CCITT (poly 0x1021, init 0) over len, msg_id and the
// payload.
package aplink

import (
	"errors"
	"fmt"
)

const (
	StartByte  = 0xA5
	HeaderLen  = 3
	TrailerLen = 2
	MaxPayload = 255
)

var (
	// ErrPayloadLength is returned when a payload does not match its
	// message layout.
	ErrPayloadLength = errors.New("payload length mismatch")
)

// Message is anything that can be framed.
type Message interface {
	ID() uint8
	MarshalBinary() ([]byte, error)
}

// Packet is one complete, checksum-verified frame.
type Packet struct {
	ID      uint8
	Payload []byte
}

// Encode frames msg.
func Encode(msg Message) ([]byte, error) {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal message 0x%02X: %w", msg.ID(), err)
	}
	return EncodeRaw(msg.ID(), payload)
}

// EncodeRaw frames an already serialized payload.
func EncodeRaw(id uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("message 0x%02X: payload of %d bytes exceeds %d", id, len(payload), MaxPayload)
	}

	out := make([]byte, 0, HeaderLen+len(payload)+TrailerLen)
	out = append(out, StartByte, byte(len(payload)), id)
	out = append(out, payload...)
	crc := crc16(out[1:])
	out = append(out, byte(crc), byte(crc>>8))
	return out, nil
}

type parseState uint8

const (
	waitStart parseState = iota
	readLen
	readID
	readPayload
	readCRCLow
	readCRCHigh
)

// Parser reassembles frames from a byte stream. Corrupt frames are
// dropped silently and the parser resynchronizes on the next start byte.
// Not safe for concurrent use.
type Parser struct {
	state   parseState
	length  int
	id      uint8
	buf     []byte
	crcLow  byte
	lengths map[uint8]int

	rejected uint64
}

// WithExpectedLength makes the parser drop frames of id whose payload
// length differs from n.
func WithExpectedLength(id uint8, n int) func(*Parser) {
	return func(p *Parser) {
		p.lengths[id] = n
	}
}

// NewParser returns a parser that knows the fixed payload lengths of the
// bridge's messages.
func NewParser(options ...func(*Parser)) *Parser {
	p := &Parser{
		buf:     make([]byte, 0, MaxPayload),
		lengths: map[uint8]int{MsgIDHITLSensors: SensorsPayloadLen, MsgIDHITLCommands: CommandsPayloadLen},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Feed consumes one byte. It returns a packet and true when b completes a
// valid frame. The payload slice is owned by the caller.
func (p *Parser) Feed(b byte) (Packet, bool) {
	switch p.state {
	case waitStart:
		if b == StartByte {
			p.state = readLen
		}

	case readLen:
		p.length = int(b)
		p.buf = p.buf[:0]
		p.state = readID

	case readID:
		p.id = b
		if n, ok := p.lengths[b]; ok && n != p.length {
			p.reject()
			break
		}
		if p.length == 0 {
			p.state = readCRCLow
		} else {
			p.state = readPayload
		}

	case readPayload:
		p.buf = append(p.buf, b)
		if len(p.buf) == p.length {
			p.state = readCRCLow
		}

	case readCRCLow:
		p.crcLow = b
		p.state = readCRCHigh

	case readCRCHigh:
		p.state = waitStart
		got := uint16(p.crcLow) | uint16(b)<<8
		if got != p.checksum() {
			p.rejected++
			return Packet{}, false
		}
		payload := make([]byte, len(p.buf))
		copy(payload, p.buf)
		return Packet{ID: p.id, Payload: payload}, true
	}

	return Packet{}, false
}

// Rejected counts frames dropped for a bad length or checksum.
func (p *Parser) Rejected() uint64 {
	return p.rejected
}

func (p *Parser) reject() {
	p.rejected++
	p.state = waitStart
}

func (p *Parser) checksum() uint16 {
	crc := crc16Update(0, []byte{byte(p.length), p.id})
	return crc16Update(crc, p.buf)
}

func crc16(data []byte) uint16 {
	return crc16Update(0, data)
}

func crc16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
