package polar

import "math"

// DoLPEpsilon is added to S0 before dividing so a dark super-pixel does not
// divide by zero
const DoLPEpsilon = 0.001

// Calibration holds the multiplicative gain of each polarizer angle, applied to
// the raw intensities before the Stokes parameters are computed
type Calibration struct {
	F0   float64 `json:"f0" yaml:"F0" koanf:"f0"`
	F45  float64 `json:"f45" yaml:"F45" koanf:"f45"`
	F90  float64 `json:"f90" yaml:"F90" koanf:"f90"`
	F135 float64 `json:"f135" yaml:"F135" koanf:"f135"`
}

var (
	// DefaultCalibration is the factory calibration of the polarized sensor
	DefaultCalibration = Calibration{F0: 1.0269, F45: 1.0, F90: 1.0385, F135: 1.005}

	// UnitCalibration leaves intensities untouched
	UnitCalibration = Calibration{F0: 1, F45: 1, F90: 1, F135: 1}
)

// Stokes holds the first three Stokes parameters of a super-pixel.  S3
// (circular polarization) cannot be measured by a linear polarizer mosaic.
type Stokes struct {
	S0, S1, S2 float64
}

// Stokes computes the Stokes parameters of g.
//
// S0 is the larger of the two orthogonal pair sums rather than their mean, so
// it stays meaningful when one direction dominates.
func (c Calibration) Stokes(g Group) Stokes {
	i0 := c.F0 * float64(g.X1Y1)
	i45 := c.F45 * float64(g.X1Y0)
	i90 := c.F90 * float64(g.X0Y0)
	i135 := c.F135 * float64(g.X0Y1)
	return Stokes{
		S0: math.Max(i0+i90, i45+i135),
		S1: i0 - i90,
		S2: i45 - i135,
	}
}

// AoLP is the angle of linear polarization in degrees, in [0, 180)
func (s Stokes) AoLP() float64 {
	theta := 0.5 * math.Atan2(s.S2, s.S1)
	if theta < 0 {
		theta += math.Pi
	}
	deg := theta * 180 / math.Pi
	if deg >= 180 {
		// theta a hair below zero shifts up to exactly pi
		deg -= 180
	}
	return deg
}

// DoLP is the degree of linear polarization.  It lies in [0, 1] for well
// calibrated data and is not clamped.
func (s Stokes) DoLP() float64 {
	return math.Sqrt(s.S1*s.S1+s.S2*s.S2) / (s.S0 + DoLPEpsilon)
}
