package gps

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

var fixTime = time.Date(2026, 3, 14, 15, 9, 26, 500_000_000, time.UTC)

func TestFormatCoord(t *testing.T) {
	tests := []struct {
		deg        float64
		digits     int
		want, hemi string
	}{
		{43.879, 2, "4352.74000", "N"},
		{-79.413383, 3, "07924.80298", "W"},
		{0, 2, "0000.00000", "N"},
		{-0.5, 3, "00030.00000", "W"},
	}
	for _, tt := range tests {
		got, hemi := formatCoord(tt.deg, tt.digits, "N", "S")
		if tt.digits == 3 {
			got, hemi = formatCoord(tt.deg, tt.digits, "E", "W")
		}
		if got != tt.want || hemi != tt.hemi {
			t.Errorf("formatCoord(%v) = %q %q, want %q %q", tt.deg, got, hemi, tt.want, tt.hemi)
		}
	}
}

func TestFixFromVehicle(t *testing.T) {
	f := FixFromVehicle(state.VehicleState{Lat: 1, Lon: 2, Alt: 3, VNorth: 0, VEast: -10}, fixTime)
	if math.Abs(f.CourseDeg-270) > 1e-9 {
		t.Errorf("course = %v, want 270", f.CourseDeg)
	}
	if math.Abs(f.SpeedKnots-19.43844) > 1e-9 {
		t.Errorf("speed = %v", f.SpeedKnots)
	}
	if f.Time != "15:09:26" || f.Date != "2026-03-14" || f.Validity != "A" {
		t.Errorf("fix = %+v", f)
	}
}

func TestSentencesParse(t *testing.T) {
	f := FixFromVehicle(state.VehicleState{Lat: 43.879, Lon: -79.413383, Alt: 30.48, VNorth: 10, VEast: 10}, fixTime)

	s, err := nmea.Parse(GGA(f))
	if err != nil {
		t.Fatalf("parse GGA %q: %v", GGA(f), err)
	}
	gga, ok := s.(nmea.GGA)
	if !ok {
		t.Fatalf("got %T, want GGA", s)
	}
	if math.Abs(gga.Latitude-43.879) > 1e-6 || math.Abs(gga.Longitude+79.413383) > 1e-6 {
		t.Errorf("GGA position = %v, %v", gga.Latitude, gga.Longitude)
	}
	if gga.Altitude != 30.5 {
		t.Errorf("GGA altitude = %v", gga.Altitude)
	}

	s, err = nmea.Parse(RMC(f))
	if err != nil {
		t.Fatalf("parse RMC %q: %v", RMC(f), err)
	}
	rmc, ok := s.(nmea.RMC)
	if !ok {
		t.Fatalf("got %T, want RMC", s)
	}
	if rmc.Validity != "A" || math.Abs(rmc.Course-45) > 0.05 {
		t.Errorf("RMC = %+v", rmc)
	}
	if rmc.Time.Hour != 15 || rmc.Time.Minute != 9 || rmc.Time.Second != 26 {
		t.Errorf("RMC time = %v", rmc.Time)
	}
	if rmc.Date.DD != 14 || rmc.Date.MM != 3 || rmc.Date.YY != 26 {
		t.Errorf("RMC date = %v", rmc.Date)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEmitterWritesAfterFirstState(t *testing.T) {
	slot := &exchange.Slot[state.VehicleState]{}
	out := &lockedBuffer{}
	fixes := make(chan Fix, 16)

	e := NewEmitter(out, slot,
		WithRate(200),
		WithNow(func() time.Time { return fixTime }),
		WithFixHandler(func(f Fix) {
			select {
			case fixes <- f:
			default:
			}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if out.String() != "" {
		t.Fatalf("emitted before any vehicle state: %q", out.String())
	}

	slot.Publish(state.VehicleState{Lat: 38.9, Lon: -77})
	select {
	case f := <-fixes:
		if f.Latitude != 38.9 {
			t.Errorf("fix = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fix emitted")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\r\n")
	if len(lines) < 2 {
		t.Fatalf("lines = %q", lines)
	}
	for _, line := range lines {
		if _, err := nmea.Parse(line); err != nil {
			t.Errorf("parse %q: %v", line, err)
		}
	}
}
