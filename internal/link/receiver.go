// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/aplink"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// ErrHangup is returned by Receiver.Run when the port keeps reporting end
// of stream faster than its read timeout allows, as a tty does once the
// device is unplugged.
var ErrHangup = errors.New("transport hung up")

// hangupEOFs back-to-back EOFs are needed before their pacing is judged.
const hangupEOFs = 20

// Receiver decodes actuator commands from the autopilot and publishes them
// as link-sourced control input.
type Receiver struct {
	r       *bufio.Reader
	parser  *aplink.Parser
	control *exchange.Slot[state.ControlInput]
	pwm     PWMRange
	stats   *Stats
	logger  *slog.Logger

	readTimeout time.Duration
	eofs        int
	eofSince    time.Time
}

func WithPWMRange(r PWMRange) func(*Receiver) {
	return func(rc *Receiver) {
		rc.pwm = r
	}
}

// WithReadTimeout tells the receiver the port's read timeout, as passed to
// Open.
func WithReadTimeout(d time.Duration) func(*Receiver) {
	return func(rc *Receiver) {
		if d > 0 {
			rc.readTimeout = roundUp100ms(d)
		}
	}
}

func WithReceiveStats(s *Stats) func(*Receiver) {
	return func(rc *Receiver) {
		rc.stats = s
	}
}

func WithReceiveLogger(logger *slog.Logger) func(*Receiver) {
	return func(rc *Receiver) {
		rc.logger = logger
	}
}

func NewReceiver(r io.Reader, control *exchange.Slot[state.ControlInput], options ...func(*Receiver)) (*Receiver, error) {
	rc := &Receiver{
		r:       bufio.NewReader(r),
		parser:  aplink.NewParser(),
		control: control,
		pwm:     DefaultPWMRange,
		stats:   &Stats{},
		logger:  slog.New(slog.DiscardHandler),

		readTimeout: 100 * time.Millisecond,
	}
	for _, option := range options {
		option(rc)
	}
	if rc.pwm.Min == rc.pwm.Max {
		return nil, fmt.Errorf("pwm range %v..%v: %w", rc.pwm.Min, rc.pwm.Max, ErrDegenerateRange)
	}
	return rc, nil
}

// Run reads until ctx is done or the transport fails. io.EOF from a port
// opened with a read timeout only means silence and is retried, unless
// EOFs arrive so fast that the port must be gone (ErrHangup). The caller
// closes the port to unblock a pending read on cancellation.
func (rc *Receiver) Run(ctx context.Context) error {
	rc.logger.Info("receiver started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := rc.r.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				if rc.hungUp(time.Now()) {
					return fmt.Errorf("read command stream: %w", ErrHangup)
				}
				continue
			}
			return fmt.Errorf("read command stream: %w", err)
		}
		rc.eofs = 0
		rc.stats.BytesReceived.Add(1)

		pkt, ok := rc.parser.Feed(b)
		rc.stats.Rejected.Store(rc.parser.Rejected())
		if !ok {
			continue
		}
		rc.handle(pkt)
	}
}

// hungUp records one EOF at now. A live port spaces its EOFs one read
// timeout apart; a run of them at under half that pace means a hangup.
func (rc *Receiver) hungUp(now time.Time) bool {
	if rc.eofs == 0 {
		rc.eofSince = now
	}
	rc.eofs++
	if rc.eofs < hangupEOFs {
		return false
	}
	fast := now.Sub(rc.eofSince) < time.Duration(rc.eofs-1)*rc.readTimeout/2
	rc.eofs = 0
	return fast
}

func (rc *Receiver) handle(pkt aplink.Packet) {
	if pkt.ID != aplink.MsgIDHITLCommands {
		rc.logger.Debug("ignoring link message", slog.Int("id", int(pkt.ID)))
		return
	}

	var cmd aplink.HITLCommands
	if err := cmd.UnmarshalBinary(pkt.Payload); err != nil {
		rc.logger.Warn("bad commands payload", slog.Any("error", err))
		return
	}
	ctl, err := rc.pwm.ToControl(cmd)
	if err != nil {
		rc.logger.Warn("remap commands", slog.Any("error", err))
		return
	}

	rc.stats.FramesReceived.Add(1)
	rc.control.Publish(ctl)
	rc.logger.Debug("link command",
		slog.Float64("elevator", ctl.Elevator),
		slog.Float64("rudder", ctl.Rudder),
		slog.Float64("throttle", ctl.Throttle))
}
