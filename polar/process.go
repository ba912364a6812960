package polar

import (
	"fmt"
	"math"
)

// Frame is a read-only view of a raw polarized frame
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte
}

// Validate checks the format, that both dimensions are even and nonzero, and
// that the buffer is exactly the size implied by them
func (f Frame) Validate() error {
	if !f.Format.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPixelFormat, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 || f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("%w: %dx%d, both must be even", ErrInvalidDimensions, f.Width, f.Height)
	}
	if want := f.Format.FrameSize(f.Width, f.Height); len(f.Data) != want {
		return fmt.Errorf("%w: %v %dx%d needs %d bytes, buffer has %d",
			ErrInvalidDimensions, f.Format, f.Width, f.Height, want, len(f.Data))
	}
	return nil
}

// Each calls fn for every super-pixel in raster order, top to bottom and left
// to right.  col and row are the super-pixel's position in the half-resolution
// grid.
func (f Frame) Each(fn func(col, row int, g Group)) error {
	if err := f.Validate(); err != nil {
		return err
	}
	f.each(fn)
	return nil
}

// each is Each on a frame already validated
func (f Frame) each(fn func(col, row int, g Group)) {
	for y := 0; y < f.Height; y += 2 {
		for x := 0; x < f.Width; x += 2 {
			fn(x/2, y/2, unpackAt(f.Data, f.Width, f.Format, x, y))
		}
	}
}

// Processor converts raw frames to output images with a fixed calibration.
// It holds no mutable state and may be shared.
type Processor struct {
	Calibration Calibration
}

// NewProcessor returns a processor using calibration c
func NewProcessor(c Calibration) *Processor {
	return &Processor{Calibration: c}
}

// Process produces the output image of the given mode from f.  f is only
// read; the returned image is owned by the caller.
func (p *Processor) Process(f Frame, m Mode) (*Image, error) {
	cal := p.Calibration
	for _, v := range []float64{cal.F0, cal.F45, cal.F90, cal.F135} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: calibration %+v", ErrNumericDomain, cal)
		}
	}
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrOutputModeUnsupported, m)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var dst *Image
	halfW, halfH := f.Width/2, f.Height/2
	switch m {
	case AoLP, HSV:
		dst = NewImage(halfW, halfH, RGB8)
	case DoLP:
		dst = NewImage(halfW, halfH, Mono8)
	case Deg2x2:
		dst = NewImage(f.Width, f.Height, Mono8)
	}

	out := dst.Pix
	idx := 0
	f.each(func(col, row int, g Group) {
		switch m {
		case AoLP:
			putAoLP(out[idx:idx+3], cal.Stokes(g).AoLP())
			idx += 3
		case DoLP:
			out[idx] = dolpByte(cal.Stokes(g).DoLP())
			idx++
		case HSV:
			s := cal.Stokes(g)
			putHSV(out[idx:idx+3], s.AoLP(), s.DoLP())
			idx += 3
		case Deg2x2:
			putDeg2x2(out, f.Width, f.Height, col, row, g.Reduce(f.Format))
		}
	})
	return dst, nil
}

// Process runs a processor with DefaultCalibration
func Process(f Frame, m Mode) (*Image, error) {
	return NewProcessor(DefaultCalibration).Process(f, m)
}

// Samples unpacks the whole frame into row-major samples at the format's own
// bit depth
func (f Frame) Samples() ([]uint16, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]uint16, f.Width*f.Height)
	f.each(func(col, row int, g Group) {
		top := 2 * row * f.Width
		bot := top + f.Width
		out[top+2*col], out[top+2*col+1] = g.X0Y0, g.X1Y0
		out[bot+2*col], out[bot+2*col+1] = g.X0Y1, g.X1Y1
	})
	return out, nil
}
