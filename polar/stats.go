package polar

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds whole-frame polarization statistics
type Summary struct {
	// Groups is the number of super-pixels
	Groups int `json:"groups"`

	// MeanIntensity is the mean S0
	MeanIntensity float64 `json:"meanIntensity"`

	// MeanDoLP is the mean degree of linear polarization
	MeanDoLP float64 `json:"meanDoLP"`

	// StdDoLP is the standard deviation of the degree of linear polarization
	StdDoLP float64 `json:"stdDoLP"`

	// MeanAoLP is the circular mean angle of linear polarization in degrees, in [0, 180)
	MeanAoLP float64 `json:"meanAoLP"`
}

// Summarize computes a Summary of f.  AoLP is axial data (0 and 180 degrees
// are the same direction), so its mean is taken on doubled angles and halved.
func (p *Processor) Summarize(f Frame) (Summary, error) {
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}
	n := (f.Width / 2) * (f.Height / 2)
	s0 := make([]float64, 0, n)
	dolp := make([]float64, 0, n)
	doubled := make([]float64, 0, n)
	cal := p.Calibration
	f.each(func(_, _ int, g Group) {
		s := cal.Stokes(g)
		s0 = append(s0, s.S0)
		dolp = append(dolp, s.DoLP())
		doubled = append(doubled, 2*s.AoLP()*math.Pi/180)
	})
	sum := Summary{
		Groups:        n,
		MeanIntensity: stat.Mean(s0, nil),
		MeanDoLP:      stat.Mean(dolp, nil),
		MeanAoLP:      math.Mod(stat.CircularMean(doubled, nil)*90/math.Pi+180, 180),
	}
	if n > 1 {
		sum.StdDoLP = stat.StdDev(dolp, nil)
	}
	return sum, nil
}
