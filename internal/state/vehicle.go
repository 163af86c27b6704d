package state

// VehicleState is the truth attitude and position of one step, for
// visualization and logging.
type VehicleState struct {
	SimTime float64 `json:"sim_time"`

	Roll  float64 `json:"roll"`  // degrees
	Pitch float64 `json:"pitch"` // degrees
	Yaw   float64 `json:"yaw"`   // degrees

	Lat float64 `json:"lat"` // degrees
	Lon float64 `json:"lon"` // degrees
	Alt float64 `json:"alt"` // meters above sea level

	VNorth float64 `json:"v_north"` // m/s
	VEast  float64 `json:"v_east"`
	VDown  float64 `json:"v_down"`
}
