package state

// SimulatedSensors is one emulated-sensor snapshot derived from a truth step.
type SimulatedSensors struct {
	SimTime float64 `json:"sim_time"` // truth clock of the step, seconds; not sent on the link

	Ax float64 `json:"ax"` // specific force, g, body frame
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // angular rate, deg/s, body frame
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Mx float64 `json:"mx"` // unit magnetic field, body frame
	My float64 `json:"my"`
	Mz float64 `json:"mz"`

	BaroASL float64 `json:"baro_asl"` // meters above sea level

	GPSLat int32 `json:"gps_lat"` // degrees * 1e7
	GPSLon int32 `json:"gps_lon"` // degrees * 1e7

	OFX int16 `json:"of_x"` // optical flow, reserved
	OFY int16 `json:"of_y"`
}
