package clock

import (
	"context"
	"testing"
	"time"
)

type fakeWall struct {
	t time.Time
}

func (f *fakeWall) now() time.Time { return f.t }

func (f *fakeWall) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestShouldStep(t *testing.T) {
	tests := []struct {
		sim  float64
		wall time.Duration
		want bool
	}{
		{0, 0, true},
		{0.008, 0, false},
		{0.008, 7 * time.Millisecond, false},
		{0.008, 8 * time.Millisecond, true},
		{0.008, time.Second, true},
		{2.5, 2499 * time.Millisecond, false},
	}

	for _, tt := range tests {
		if got := ShouldStep(tt.sim, tt.wall); got != tt.want {
			t.Errorf("ShouldStep(%v, %v) = %v, want %v", tt.sim, tt.wall, got, tt.want)
		}
	}
}

// With a steady wall clock the truth model steps once per timestep on
// average and never when it is ahead.
func TestClock_Pacing(t *testing.T) {
	wall := &fakeWall{t: time.Unix(1000, 0)}
	c := New(WithNow(wall.now))

	const dt = 0.005
	const poll = 250 * time.Microsecond
	sim := 0.0
	steps := 0

	for wall.t.Sub(time.Unix(1000, 0)) < time.Second {
		elapsed := c.Elapsed()
		if c.Poll(sim) {
			if elapsed.Seconds() < sim {
				t.Fatalf("stepped while ahead: sim=%v wall=%v", sim, elapsed)
			}
			sim += dt
			steps++
		}
		if sim-c.Elapsed().Seconds() > dt+1e-9 {
			t.Fatalf("truth ran more than one step ahead: sim=%v wall=%v", sim, c.Elapsed())
		}
		wall.advance(poll)
	}

	// one second at 200 Hz
	if steps < 199 || steps > 201 {
		t.Errorf("expected ~200 steps in one second, got %d", steps)
	}
}

// After a stall the clock issues steps back-to-back until caught up.
func TestClock_CatchUpAfterStall(t *testing.T) {
	wall := &fakeWall{t: time.Unix(0, 0)}
	c := New(WithNow(wall.now))

	const dt = 0.01
	sim := 0.0
	wall.advance(100 * time.Millisecond)

	burst := 0
	for c.Poll(sim) {
		sim += dt
		burst++
		if burst > 100 {
			t.Fatal("clock never caught up")
		}
	}

	// steps at sim=0.00 .. 0.10 inclusive
	if burst != 11 {
		t.Errorf("expected 11 catch-up steps, got %d", burst)
	}
	if lag := c.Lag(sim); lag > 0 {
		t.Errorf("expected clock to be caught up, lag=%v", lag)
	}
}

func TestClock_IdleUsesInjectedSleep(t *testing.T) {
	var slept time.Duration
	c := New(
		WithIdleWait(300*time.Microsecond),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept += d
			return nil
		}),
	)

	if err := c.Idle(context.Background()); err != nil {
		t.Fatalf("Idle() error: %v", err)
	}
	if slept != 300*time.Microsecond {
		t.Errorf("expected 300µs idle, got %v", slept)
	}
}

func TestClock_IdleCancelled(t *testing.T) {
	c := New(WithIdleWait(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Idle(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClock_Align(t *testing.T) {
	wall := &fakeWall{t: time.Unix(1000, 0)}
	c := New(WithNow(wall.now))

	c.Align(2)
	if c.Elapsed() != 2*time.Second {
		t.Fatalf("Elapsed() = %v, want 2s", c.Elapsed())
	}
	if !c.Poll(2) {
		t.Error("aligned model should be due")
	}
	if c.Poll(2.008) {
		t.Error("model one step ahead should wait")
	}
}
