package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/aplink"
	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

func TestTransmitterSendsLatestSnapshot(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	slot := &exchange.Slot[state.SimulatedSensors]{}
	slot.Publish(state.SimulatedSensors{Az: -1, BaroASL: 10})
	slot.Publish(state.SimulatedSensors{Az: -1, BaroASL: 30.5, GPSLat: 389000000})

	stats := &Stats{}
	tx := NewTransmitter(local, slot, WithTransmitInterval(time.Millisecond), WithTransmitStats(stats))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tx.Run(ctx) }()

	p := aplink.NewParser()
	buf := make([]byte, 128)
	var got aplink.HITLSensors
	for received := false; !received; {
		n, err := remote.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		for _, b := range buf[:n] {
			if pkt, ok := p.Feed(b); ok {
				if err := got.UnmarshalBinary(pkt.Payload); err != nil {
					t.Fatal(err)
				}
				received = true
			}
		}
	}

	cancel()
	local.Close()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	if got.BaroASL != 30.5 || got.GPSLat != 389000000 || got.Az != -1 {
		t.Errorf("sent %+v, want newest snapshot", got)
	}
	if s := stats.Snapshot(); s.FramesSent != 1 || s.BytesSent != aplink.HeaderLen+aplink.SensorsPayloadLen+aplink.TrailerLen {
		t.Errorf("stats = %+v", s)
	}
}

func TestTransmitterWriteErrorIsReturned(t *testing.T) {
	local, remote := net.Pipe()
	remote.Close()

	slot := &exchange.Slot[state.SimulatedSensors]{}
	slot.Publish(state.SimulatedSensors{})
	tx := NewTransmitter(local, slot, WithTransmitInterval(time.Millisecond))

	err := tx.Run(context.Background())
	if err == nil || errors.Is(err, context.Canceled) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestReceiverPublishesCommands(t *testing.T) {
	local, remote := net.Pipe()

	slot := &exchange.Slot[state.ControlInput]{}
	stats := &Stats{}
	rx, err := NewReceiver(local, slot, WithReceiveStats(stats))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rx.Run(ctx) }()

	var stream bytes.Buffer
	stream.Write([]byte{0x01, 0x02})
	bad, _ := aplink.Encode(&aplink.HITLCommands{ElevatorPWM: 1000, RudderPWM: 1000, ThrottlePWM: 1000})
	bad[len(bad)-1] ^= 0xFF
	stream.Write(bad)
	good, _ := aplink.Encode(&aplink.HITLCommands{ElevatorPWM: 2000, RudderPWM: 1500, ThrottlePWM: 1250})
	stream.Write(good)

	if _, err := remote.Write(stream.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ctl state.ControlInput
	deadline := time.Now().Add(2 * time.Second)
	for {
		v, ok := slot.Consume()
		if ok {
			ctl = v
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no command published")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	remote.Close()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}

	want := state.ControlInput{Elevator: 1, Rudder: 0, Throttle: 0.25}
	if ctl != want {
		t.Errorf("published %+v, want %+v", ctl, want)
	}
	s := stats.Snapshot()
	if s.FramesReceived != 1 || s.Rejected != 1 || s.BytesReceived != uint64(stream.Len()) {
		t.Errorf("stats = %+v", s)
	}
}

// silentReader returns io.EOF a few times like a port with a read timeout.
type silentReader struct {
	mu    sync.Mutex
	eofs  int
	data  []byte
	reads int
}

func (r *silentReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.eofs > 0 {
		r.eofs--
		return 0, io.EOF
	}
	if len(r.data) == 0 {
		return 0, errors.New("port gone")
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestReceiverRetriesTimeouts(t *testing.T) {
	frame, _ := aplink.Encode(&aplink.HITLCommands{ElevatorPWM: 1500, RudderPWM: 1500, ThrottlePWM: 1000})
	r := &silentReader{eofs: 3, data: frame}

	slot := &exchange.Slot[state.ControlInput]{}
	rx, err := NewReceiver(r, slot)
	if err != nil {
		t.Fatal(err)
	}

	err = rx.Run(context.Background())
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}

	ctl, ok := slot.Consume()
	if !ok {
		t.Fatal("command after timeouts was not published")
	}
	if ctl != (state.ControlInput{}) {
		t.Errorf("got %+v, want neutral", ctl)
	}
}

func TestNewReceiverRejectsDegenerateRange(t *testing.T) {
	_, err := NewReceiver(bytes.NewReader(nil), &exchange.Slot[state.ControlInput]{}, WithPWMRange(PWMRange{Min: 1500, Max: 1500}))
	if !errors.Is(err, ErrDegenerateRange) {
		t.Errorf("expected ErrDegenerateRange, got %v", err)
	}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func TestReceiverDetectsHangup(t *testing.T) {
	rx, err := NewReceiver(eofReader{}, &exchange.Slot[state.ControlInput]{}, WithReadTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err = rx.Run(ctx)
	if !errors.Is(err, ErrHangup) {
		t.Fatalf("expected ErrHangup, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("hangup took %v to detect", elapsed)
	}
}

func TestReceiverHungUpPacing(t *testing.T) {
	rx, err := NewReceiver(eofReader{}, &exchange.Slot[state.ControlInput]{}, WithReadTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	// EOFs spaced by the read timeout are plain silence
	now := time.Unix(0, 0)
	for i := 0; i < 3*hangupEOFs; i++ {
		if rx.hungUp(now) {
			t.Fatalf("paced EOF %d reported as hangup", i)
		}
		now = now.Add(100 * time.Millisecond)
	}

	for i := 0; i < hangupEOFs-1; i++ {
		if rx.hungUp(now) {
			t.Fatalf("hangup reported after only %d fast EOFs", i+1)
		}
	}
	if !rx.hungUp(now) {
		t.Error("burst of EOFs not reported as hangup")
	}
}
