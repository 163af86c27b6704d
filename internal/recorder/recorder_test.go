package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "flight.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SessionsAndSamples(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, map[string]any{"port": "/dev/ttyACM0"})
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	wall := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []Sample{
		{SimTime: 0.008, WallTime: wall, Source: "manual",
			Sensors: state.SimulatedSensors{Az: -1, BaroASL: 1.524, GPSLat: 438789600, GPSLon: -794133830},
			Vehicle: state.VehicleState{Lat: 43.87896, Lon: -79.413383, Alt: 1.524}},
		{SimTime: 0.016, WallTime: wall.Add(8 * time.Millisecond), Source: "link",
			Sensors: state.SimulatedSensors{Gx: 12.5, Mx: -0.2},
			Vehicle: state.VehicleState{Roll: 3, VNorth: 1.5}},
	}
	if err := s.InsertSamples(ctx, id, in); err != nil {
		t.Fatalf("InsertSamples() error: %v", err)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("sessions = %+v", sessions)
	}
	if sessions[0].Config == nil || *sessions[0].Config != `{"port":"/dev/ttyACM0"}` {
		t.Errorf("config = %v", sessions[0].Config)
	}

	out, err := s.Samples(ctx, id)
	if err != nil {
		t.Fatalf("Samples() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d samples, want 2", len(out))
	}
	if out[0].Sensors.GPSLat != 438789600 || out[0].Vehicle.Lat != 43.87896 || out[0].Source != "manual" {
		t.Errorf("sample 0 = %+v", out[0])
	}
	if out[1].Sensors.Gx != 12.5 || out[1].Vehicle.VNorth != 1.5 || out[1].SimTime != 0.016 {
		t.Errorf("sample 1 = %+v", out[1])
	}
	if !out[1].WallTime.Equal(wall.Add(8 * time.Millisecond)) {
		t.Errorf("wall time = %v", out[1].WallTime)
	}
}

func TestStore_EmptyBatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSamples(context.Background(), uuid.Nil, nil); err != nil {
		t.Errorf("InsertSamples(nil) error: %v", err)
	}
}

func TestRecorder_FlushesOnCancel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.CreateSession(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	ex := exchange.New()
	r := New(s, id, ex,
		WithSampleInterval(time.Millisecond),
		WithMaxBatchSize(1000),
		WithSourceFunc(func() string { return "link" }))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx) }()

	for i := 1; i <= 3; i++ {
		ex.Sensors.Publish(state.SimulatedSensors{SimTime: float64(i), Az: -1})
		ex.Vehicle.Publish(state.VehicleState{SimTime: float64(i), Alt: float64(i)})
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v", err)
	}

	out, err := s.Samples(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 || uint64(len(out)) != r.Written() {
		t.Fatalf("stored %d samples, recorder wrote %d", len(out), r.Written())
	}
	last := out[len(out)-1]
	if last.SimTime != 3 || last.Vehicle.Alt != 3 || last.Source != "link" {
		t.Errorf("last sample = %+v", last)
	}
}
