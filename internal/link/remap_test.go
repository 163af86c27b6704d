package link

import (
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/hitl_bridge/internal/aplink"
	"github.com/relabs-tech/hitl_bridge/internal/state"
)

func TestRemapEndpoints(t *testing.T) {
	tests := []struct {
		x, a1, a2, b1, b2 float64
		want              float64
	}{
		{1000, 1000, 2000, -1, 1, -1},
		{2000, 1000, 2000, -1, 1, 1},
		{1500, 1000, 2000, -1, 1, 0},
		{1000, 1000, 2000, 0, 1, 0},
		{2000, 1000, 2000, 0, 1, 1},
		{1250, 1000, 2000, 0, 1, 0.25},
		{2500, 1000, 2000, 0, 1, 1.5},
		{5, 10, 0, 0, 100, 50},
	}
	for _, tt := range tests {
		got, err := Remap(tt.x, tt.a1, tt.a2, tt.b1, tt.b2)
		if err != nil {
			t.Fatalf("Remap(%v) error: %v", tt, err)
		}
		if got != tt.want {
			t.Errorf("Remap(%v, %v, %v, %v, %v) = %v, want %v", tt.x, tt.a1, tt.a2, tt.b1, tt.b2, got, tt.want)
		}
	}
}

func TestRemapDegenerateRange(t *testing.T) {
	if _, err := Remap(1500, 1500, 1500, -1, 1); !errors.Is(err, ErrDegenerateRange) {
		t.Errorf("expected ErrDegenerateRange, got %v", err)
	}
}

func TestPWMRangeToControl(t *testing.T) {
	got, err := DefaultPWMRange.ToControl(aplink.HITLCommands{ElevatorPWM: 1500, RudderPWM: 1000, ThrottlePWM: 2000})
	if err != nil {
		t.Fatal(err)
	}
	want := state.ControlInput{Elevator: 0, Rudder: -1, Throttle: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// out-of-range pulses are clamped, not extrapolated
	got, _ = DefaultPWMRange.ToControl(aplink.HITLCommands{ElevatorPWM: 2400, RudderPWM: 600, ThrottlePWM: 900})
	want = state.ControlInput{Elevator: 1, Rudder: -1, Throttle: 0}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPWMRangeToControlDegenerate(t *testing.T) {
	r := PWMRange{Min: 1500, Max: 1500}
	got, err := r.ToControl(aplink.HITLCommands{ElevatorPWM: 1500, RudderPWM: 1500, ThrottlePWM: 1500})
	if !errors.Is(err, ErrDegenerateRange) {
		t.Fatalf("expected ErrDegenerateRange, got %v", err)
	}
	if got != (state.ControlInput{}) {
		t.Errorf("expected zero control on error, got %+v", got)
	}
}

func TestRoundUp100ms(t *testing.T) {
	tests := []struct{ in, want time.Duration }{
		{100 * time.Millisecond, 100 * time.Millisecond},
		{1 * time.Millisecond, 100 * time.Millisecond},
		{250 * time.Millisecond, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := roundUp100ms(tt.in); got != tt.want {
			t.Errorf("roundUp100ms(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
