// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link moves sensor frames to the autopilot and actuator commands
// back over a serial line.
package link

import (
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialConfig describes the autopilot's serial port.
type SerialConfig struct {
	Port        string
	BaudRate    uint
	ReadTimeout time.Duration
}

// Open opens the port 8N1. With a non-zero ReadTimeout reads return io.EOF
// after that much silence so receive loops can notice cancellation.
func Open(cfg SerialConfig) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	if cfg.ReadTimeout > 0 {
		// VTIME mode: MinimumReadSize must be 0 and the timeout a multiple
		// of 100ms.
		opts.MinimumReadSize = 0
		opts.InterCharacterTimeout = uint(roundUp100ms(cfg.ReadTimeout) / time.Millisecond)
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s at %d baud: %w", cfg.Port, cfg.BaudRate, err)
	}
	return port, nil
}

func roundUp100ms(d time.Duration) time.Duration {
	const step = 100 * time.Millisecond
	if d%step == 0 {
		return d
	}
	return (d/step + 1) * step
}
