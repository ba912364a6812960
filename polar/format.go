/*
Package polar turns raw frames from a polarized-sensor camera into angle and
degree of linear polarization images.

The sensor carries a 2x2 mosaic of linear polarizers over every super-pixel:

	+-----+-----+
	| 90  | 45  |
	+-----+-----+
	| 135 |  0  |
	+-----+-----+

Each super-pixel is unpacked, calibrated, and reduced to the first three
Stokes parameters, from which AoLP and DoLP are derived and mapped into one of
several output images.
*/
package polar

import (
	"fmt"
	"strings"
)

// PixelFormat is the layout of a raw polarized frame
type PixelFormat int

const (
	// PolarizeMono8 has one byte per pixel
	PolarizeMono8 PixelFormat = iota

	// PolarizeMono12p packs two 12-bit pixels into three bytes, low nibble first
	PolarizeMono12p

	// PolarizeMono12Packed packs two 12-bit pixels into three bytes, high byte first
	PolarizeMono12Packed

	// PolarizeMono16 has one little-endian 16-bit word per pixel
	PolarizeMono16
)

var formatNames = map[PixelFormat]string{
	PolarizeMono8:        "PolarizeMono8",
	PolarizeMono12p:      "PolarizeMono12p",
	PolarizeMono12Packed: "PolarizeMono12Packed",
	PolarizeMono16:       "PolarizeMono16",
}

// Formats lists the supported pixel formats by their node-map name
var Formats = []string{
	"PolarizeMono8",
	"PolarizeMono12p",
	"PolarizeMono12Packed",
	"PolarizeMono16",
}

// String satisfies fmt.Stringer
func (p PixelFormat) String() string {
	if s, ok := formatNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PixelFormat(%d)", int(p))
}

// ParsePixelFormat looks up a format by its node-map name.  The match is
// exact, since Mono12p and Mono12Packed differ only by case.
func ParsePixelFormat(name string) (PixelFormat, error) {
	for k, v := range formatNames {
		if v == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPixelFormat, name)
}

// Valid returns true if p is one of the four supported formats
func (p PixelFormat) Valid() bool {
	_, ok := formatNames[p]
	return ok
}

// BitsPerPixel is the number of significant bits in one pixel
func (p PixelFormat) BitsPerPixel() int {
	switch p {
	case PolarizeMono8:
		return 8
	case PolarizeMono12p, PolarizeMono12Packed:
		return 12
	case PolarizeMono16:
		return 16
	}
	return 0
}

// MaxValue is the largest sample the format can hold
func (p PixelFormat) MaxValue() uint16 {
	return uint16(uint32(1)<<uint(p.BitsPerPixel()) - 1)
}

// Stride is the number of bytes in one row of a frame that is width pixels wide
func (p PixelFormat) Stride(width int) int {
	switch p {
	case PolarizeMono8:
		return width
	case PolarizeMono12p, PolarizeMono12Packed:
		return width * 3 / 2
	case PolarizeMono16:
		return 2 * width
	}
	return 0
}

// FrameSize is the number of bytes in a width x height frame
func (p PixelFormat) FrameSize(width, height int) int {
	return p.Stride(width) * height
}

// reduceShift is how far a sample must be shifted right to fit in a byte
func (p PixelFormat) reduceShift() uint {
	switch p {
	case PolarizeMono12p, PolarizeMono12Packed:
		return 4
	case PolarizeMono16:
		return 8
	}
	return 0
}

// Mode selects the output image produced by Process
type Mode int

const (
	// AoLP is the angle of linear polarization mapped through the color LUT
	AoLP Mode = iota

	// DoLP is the degree of linear polarization as an 8-bit mono image
	DoLP

	// Deg2x2 splits the four filter angles into quadrants of a full size image
	Deg2x2

	// HSV combines angle (hue) and degree (saturation) into an RGB image
	HSV
)

// AllModes is every output mode, in the order the polarized example saves them
var AllModes = []Mode{AoLP, DoLP, HSV, Deg2x2}

var modeNames = map[Mode]string{
	AoLP:   "AoLP",
	DoLP:   "DoLP",
	Deg2x2: "Deg2x2",
	HSV:    "HSV",
}

// String satisfies fmt.Stringer
func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode looks up an output mode by name, without regard to case
func ParseMode(name string) (Mode, error) {
	for k, v := range modeNames {
		if strings.EqualFold(v, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrOutputModeUnsupported, name)
}
