package polar

import (
	"encoding/binary"
	"fmt"
)

// Group is one 2x2 super-pixel.  The field names give the position within the
// tile; the comments give the polarizer angle at that position, which is
// fixed by the sensor mosaic.
type Group struct {
	X0Y0 uint16 // 90 degrees
	X1Y0 uint16 // 45 degrees
	X0Y1 uint16 // 135 degrees
	X1Y1 uint16 // 0 degrees
}

// Reduce shifts every sample of g down to 8 bits for the given source format
func (g Group) Reduce(p PixelFormat) Group {
	s := p.reduceShift()
	return Group{g.X0Y0 >> s, g.X1Y0 >> s, g.X0Y1 >> s, g.X1Y1 >> s}
}

// Unpack reads the super-pixel whose top-left corner is (x, y) from buf, a frame
// width pixels wide.  x and y must be even.  Unpack never reads past the end of
// buf; a buffer too short to hold the group is reported as ErrInvalidDimensions.
func Unpack(buf []byte, width int, p PixelFormat, x, y int) (Group, error) {
	if !p.Valid() {
		return Group{}, fmt.Errorf("%w: %v", ErrInvalidPixelFormat, p)
	}
	if x < 0 || y < 0 || x%2 != 0 || y%2 != 0 || x+2 > width {
		return Group{}, fmt.Errorf("%w: super-pixel (%d, %d) in a frame %d wide", ErrInvalidDimensions, x, y, width)
	}
	stride := p.Stride(width)
	// last byte touched is in row y+1 at the end of this group
	last := (y+1)*stride + (x+2)*stride/width - 1
	if last >= len(buf) {
		return Group{}, fmt.Errorf("%w: super-pixel (%d, %d) needs %d bytes, buffer has %d", ErrInvalidDimensions, x, y, last+1, len(buf))
	}
	return unpackAt(buf, width, p, x, y), nil
}

// unpackAt is Unpack without checks, for use by the driver once the frame has
// been validated
func unpackAt(buf []byte, width int, p PixelFormat, x, y int) Group {
	switch p {
	case PolarizeMono8:
		return unpackMono8(buf, width, x, y)
	case PolarizeMono12p:
		return unpackMono12p(buf, width, x, y)
	case PolarizeMono12Packed:
		return unpackMono12Packed(buf, width, x, y)
	case PolarizeMono16:
		return unpackMono16(buf, width, x, y)
	}
	return Group{}
}

func unpackMono8(buf []byte, width, x, y int) Group {
	top := y*width + x
	bot := top + width
	return Group{
		X0Y0: uint16(buf[top]),
		X1Y0: uint16(buf[top+1]),
		X0Y1: uint16(buf[bot]),
		X1Y1: uint16(buf[bot+1]),
	}
}

func unpackMono16(buf []byte, width, x, y int) Group {
	top := 2 * (y*width + x)
	bot := top + 2*width
	return Group{
		X0Y0: binary.LittleEndian.Uint16(buf[top:]),
		X1Y0: binary.LittleEndian.Uint16(buf[top+2:]),
		X0Y1: binary.LittleEndian.Uint16(buf[bot:]),
		X1Y1: binary.LittleEndian.Uint16(buf[bot+2:]),
	}
}

// mono12Offset is the index of the first of the three bytes holding pixels x
// and x+1 of row y
func mono12Offset(width, x, y int) int {
	return y*(width*3/2) + x*3/2
}

func unpack12p(b0, b1, b2 byte) (uint16, uint16) {
	l := uint16(b1&0x0F)<<8 | uint16(b0)
	r := uint16(b2)<<4 | uint16(b1>>4)
	return l, r
}

func unpack12Packed(b0, b1, b2 byte) (uint16, uint16) {
	l := uint16(b0)<<4 | uint16(b1&0x0F)
	r := uint16(b2)<<4 | uint16(b1>>4)
	return l, r
}

func unpackMono12p(buf []byte, width, x, y int) Group {
	top := mono12Offset(width, x, y)
	bot := top + width*3/2
	g := Group{}
	g.X0Y0, g.X1Y0 = unpack12p(buf[top], buf[top+1], buf[top+2])
	g.X0Y1, g.X1Y1 = unpack12p(buf[bot], buf[bot+1], buf[bot+2])
	return g
}

func unpackMono12Packed(buf []byte, width, x, y int) Group {
	top := mono12Offset(width, x, y)
	bot := top + width*3/2
	g := Group{}
	g.X0Y0, g.X1Y0 = unpack12Packed(buf[top], buf[top+1], buf[top+2])
	g.X0Y1, g.X1Y1 = unpack12Packed(buf[bot], buf[bot+1], buf[bot+2])
	return g
}

// Pack writes row-major samples into the byte layout of p.  It is the inverse
// of Unpack; samples wider than the format are masked to its bit depth.
func Pack(p PixelFormat, width, height int, samples []uint16) ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPixelFormat, p)
	}
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: %d samples for a %dx%d frame", ErrInvalidDimensions, len(samples), width, height)
	}
	out := make([]byte, p.FrameSize(width, height))
	switch p {
	case PolarizeMono8:
		for i, s := range samples {
			out[i] = byte(s)
		}
	case PolarizeMono16:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(out[2*i:], s)
		}
	case PolarizeMono12p:
		for i, j := 0, 0; i < len(samples); i, j = i+2, j+3 {
			l, r := samples[i]&0x0FFF, samples[i+1]&0x0FFF
			out[j] = byte(l)
			out[j+1] = byte(l>>8)&0x0F | byte(r&0x0F)<<4
			out[j+2] = byte(r >> 4)
		}
	case PolarizeMono12Packed:
		for i, j := 0, 0; i < len(samples); i, j = i+2, j+3 {
			l, r := samples[i]&0x0FFF, samples[i+1]&0x0FFF
			out[j] = byte(l >> 4)
			out[j+1] = byte(l&0x0F) | byte(r&0x0F)<<4
			out[j+2] = byte(r >> 4)
		}
	}
	return out, nil
}
