package state

// ControlInput holds normalized actuator commands for the truth model.
type ControlInput struct {
	Elevator float64 `json:"elevator"` // [-1, 1]
	Rudder   float64 `json:"rudder"`   // [-1, 1], rudder or aileron depending on the airframe
	Throttle float64 `json:"throttle"` // [0, 1]
}

// NeutralControl is the startup command: surfaces centered, engine idle.
func NeutralControl() ControlInput {
	return ControlInput{}
}

// Clamp returns c with every field forced into its normalized range.
func (c ControlInput) Clamp() ControlInput {
	return ControlInput{
		Elevator: clamp(c.Elevator, -1, 1),
		Rudder:   clamp(c.Rudder, -1, 1),
		Throttle: clamp(c.Throttle, 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
