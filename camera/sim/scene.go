package sim

import (
	"math"

	"github.com/polarlab/polarcam/polar"
	"github.com/polarlab/polarcam/util"
)

// Scene is the light falling on the simulated sensor, given per super-pixel as
// intensity (S0, as a fraction of full scale), degree and angle of linear
// polarization in degrees
type Scene func(col, row, cols, rows int) (s0, dolp, aolp float64)

// Target is the default scene: the angle sweeps 0 to 180 degrees left to
// right and the degree of polarization rises from 0 at the top to 1 at the
// bottom, over a flat field
func Target(col, row, cols, rows int) (float64, float64, float64) {
	aolp := 180 * float64(col) / float64(cols)
	dolp := 0.
	if rows > 1 {
		dolp = float64(row) / float64(rows-1)
	}
	return 1, dolp, aolp
}

// exposureFullScale is the exposure in microseconds at which the target
// reaches full scale with zero gain
const exposureFullScale = 20000.

// brightness maps exposure time and gain to a fraction of full scale.
// auto exposure holds the image at mid scale.
func brightness(exposureUs, gainDb float64, auto bool) float64 {
	if auto {
		return 0.5
	}
	return util.Clamp(exposureUs/exposureFullScale*math.Pow(10, gainDb/20), 0, 1)
}

// render draws the scene into a frame of the given geometry.  Each polarizer
// sees I/2 * (1 + d cos 2(theta - phi)), divided by its calibration gain so
// that processing with the same calibration recovers the scene.
func render(scene Scene, cal polar.Calibration, p polar.PixelFormat, width, height int, level float64) ([]byte, error) {
	cols, rows := width/2, height/2
	full := float64(p.MaxValue())
	samples := make([]uint16, width*height)
	sample := func(i, phi, f, theta, d float64) uint16 {
		v := i / 2 * (1 + d*math.Cos(2*(theta-phi)))
		return uint16(math.Round(util.Clamp(v/f, 0, full)))
	}
	for row := 0; row < rows; row++ {
		top := 2 * row * width
		bot := top + width
		for col := 0; col < cols; col++ {
			s0, d, aolp := scene(col, row, cols, rows)
			i := s0 * level * full
			theta := aolp * math.Pi / 180
			samples[top+2*col] = sample(i, math.Pi/2, cal.F90, theta, d)
			samples[top+2*col+1] = sample(i, math.Pi/4, cal.F45, theta, d)
			samples[bot+2*col] = sample(i, 3*math.Pi/4, cal.F135, theta, d)
			samples[bot+2*col+1] = sample(i, 0, cal.F0, theta, d)
		}
	}
	return polar.Pack(p, width, height, samples)
}
