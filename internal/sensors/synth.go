// Package sensors derives emulated onboard-sensor readings from truth state.
package sensors

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/hitl_bridge/internal/geomag"
	"github.com/relabs-tech/hitl_bridge/internal/state"
	"github.com/relabs-tech/hitl_bridge/internal/truth"
)

const (
	feetToMeters = 0.3048
	e7           = 1e7
)

// ErrDegenerateField is returned when a magnetic vector cannot be
// normalized (zero length or not finite).
var ErrDegenerateField = errors.New("degenerate magnetic field vector")

// Synthesizer maps truth snapshots to emulated sensor readings.
type Synthesizer struct {
	field geomag.FieldModel
}

// NewSynthesizer returns a Synthesizer using field for the magnetometer.
func NewSynthesizer(field geomag.FieldModel) *Synthesizer {
	return &Synthesizer{field: field}
}

// Synthesize builds the sensor snapshot for one truth step. On error the
// returned snapshot is the zero value and must not be published.
func (s *Synthesizer) Synthesize(t truth.Snapshot) (state.SimulatedSensors, error) {
	mag, err := s.Magnetometer(t)
	if err != nil {
		return state.SimulatedSensors{}, err
	}

	return state.SimulatedSensors{
		SimTime: t.SimTime,

		Ax: t.AccelX,
		Ay: t.AccelY,
		Az: t.AccelZ,

		Gx: RadToDeg(t.P),
		Gy: RadToDeg(t.Q),
		Gz: RadToDeg(t.R),

		Mx: mag.X,
		My: mag.Y,
		Mz: mag.Z,

		BaroASL: t.AltFt * feetToMeters,

		GPSLat: EncodeE7(t.Lat),
		GPSLon: EncodeE7(t.Lon),
	}, nil
}

// Magnetometer returns the unit field vector in the body frame, with the
// sign convention the autopilot expects (negated).
func (s *Synthesizer) Magnetometer(t truth.Snapshot) (r3.Vec, error) {
	ned, err := s.field.FieldNED(t.Lat, t.Lon, t.AltFt*feetToMeters)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("geomagnetic lookup: %w", err)
	}

	unit, err := normalize(ned)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("earth field: %w", err)
	}

	// model heading is offset by half a turn from the body x axis
	body, err := normalize(Rotate(DCM(t.Roll, t.Pitch, t.Yaw+math.Pi), unit))
	if err != nil {
		return r3.Vec{}, fmt.Errorf("body field: %w", err)
	}

	return r3.Scale(-1, body), nil
}

// DCM is the 3-2-1 (yaw, pitch, roll) direction-cosine matrix taking
// north-east-down vectors into the body frame. Angles in radians.
func DCM(roll, pitch, yaw float64) *mat.Dense {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)

	return mat.NewDense(3, 3, []float64{
		cp * cy, cp * sy, -sp,
		sr*sp*cy - cr*sy, sr*sp*sy + cr*cy, sr * cp,
		cr*sp*cy + sr*sy, cr*sp*sy - sr*cy, cr * cp,
	})
}

// Rotate applies m to v.
func Rotate(m mat.Matrix, v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

func normalize(v r3.Vec) (r3.Vec, error) {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vec{}, fmt.Errorf("%w: %+v", ErrDegenerateField, v)
	}
	return r3.Scale(1/n, v), nil
}

// RadToDeg converts an angle or rate from radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// EncodeE7 converts degrees to the fixed-point GPS wire format,
// truncating toward zero. The product is nudged away from zero by far less
// than one LSB first, so a value written with seven decimals encodes to
// exactly those digits.
func EncodeE7(deg float64) int32 {
	return int32(math.Trunc(deg*e7 + math.Copysign(1e-6, deg)))
}

// DecodeE7 converts fixed-point GPS degrees back to float degrees.
func DecodeE7(v int32) float64 {
	return float64(v) / e7
}
