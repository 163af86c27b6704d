package exchange

import (
	"testing"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

func TestControls_NeutralAtStartup(t *testing.T) {
	ex := New()

	c, src := ex.Controls.Next()
	if c != state.NeutralControl() {
		t.Errorf("expected neutral control, got %+v", c)
	}
	if src != SourceNone {
		t.Errorf("expected source none, got %s", src)
	}
}

func TestControls_ManualUntilLinkArrives(t *testing.T) {
	ex := New()

	ex.Controls.Manual.Publish(state.ControlInput{Throttle: 0.4})
	c, src := ex.Controls.Next()
	if c.Throttle != 0.4 || src != SourceManual {
		t.Fatalf("expected manual throttle 0.4, got %+v from %s", c, src)
	}

	// nothing new: keep last command
	c, src = ex.Controls.Next()
	if c.Throttle != 0.4 || src != SourceManual {
		t.Fatalf("expected held manual command, got %+v from %s", c, src)
	}

	ex.Controls.Manual.Publish(state.ControlInput{Throttle: 0.1})
	ex.Controls.Link.Publish(state.ControlInput{Throttle: 0.9})
	c, src = ex.Controls.Next()
	if c.Throttle != 0.9 || src != SourceLink {
		t.Fatalf("expected link to supersede manual, got %+v from %s", c, src)
	}
	if !ex.Controls.LinkActive() {
		t.Error("expected link to be active")
	}

	// later manual input is ignored once the link owns the actuators
	ex.Controls.Manual.Publish(state.ControlInput{Throttle: 0.2})
	c, src = ex.Controls.Next()
	if c.Throttle != 0.9 || src != SourceLink {
		t.Fatalf("expected link command to stay live, got %+v from %s", c, src)
	}
}

func TestControls_ReleaseLinkRestoresManual(t *testing.T) {
	ex := New()

	ex.Controls.Link.Publish(state.ControlInput{Throttle: 0.5})
	if _, src := ex.Controls.Next(); src != SourceLink {
		t.Fatalf("expected link source, got %s", src)
	}

	ex.Controls.Link.Publish(state.ControlInput{Throttle: 0.7})
	ex.Controls.ReleaseLink()
	if ex.Controls.LinkActive() {
		t.Error("link still active after release")
	}

	// the last link command holds until the operator sends something
	c, src := ex.Controls.Next()
	if c.Throttle != 0.5 || src != SourceLink {
		t.Fatalf("expected held link command, got %+v from %s", c, src)
	}

	ex.Controls.Manual.Publish(state.ControlInput{Throttle: 0.9})
	c, src = ex.Controls.Next()
	if c.Throttle != 0.9 || src != SourceManual {
		t.Fatalf("expected manual throttle 0.9 after release, got %+v from %s", c, src)
	}
}
