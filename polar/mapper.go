package polar

import "math"

// toByte saturates f to [0, 255] and truncates it
func toByte(f float64) byte {
	if !(f > 0) { // catches NaN
		return 0
	}
	if f >= 255 {
		return 255
	}
	return byte(f)
}

// putAoLP writes the LUT color of an angle to dst[0:3], blue first
func putAoLP(dst []byte, aolp float64) {
	c := ColorLUT[LUTIndex(aolp)]
	dst[0] = byte(c)
	dst[1] = byte(c >> 8)
	dst[2] = byte(c >> 16)
}

// dolpByte maps a degree of polarization in [0, 1] to [0, 255], rounding
func dolpByte(dolp float64) byte {
	return toByte(math.Round(dolp * 255))
}

// HSVToRGB converts hue in degrees, saturation in [0, 1] and value in
// [0, 255] to 8-bit red, green and blue.  A hue exactly on a sector boundary
// belongs to the upper sector; hues outside [0, 360) are black.
func HSVToRGB(h, s, v float64) (r, g, b byte) {
	c := v * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	m := v - c
	var rf, gf, bf float64
	switch sector := math.Floor(hp); sector {
	case 0:
		rf, gf, bf = v, x+m, m
	case 1:
		rf, gf, bf = x+m, v, m
	case 2:
		rf, gf, bf = m, v, x+m
	case 3:
		rf, gf, bf = m, x+m, v
	case 4:
		rf, gf, bf = x+m, m, v
	case 5:
		rf, gf, bf = v, m, x+m
	default:
		return 0, 0, 0
	}
	return toByte(rf), toByte(gf), toByte(bf)
}

// putHSV writes the HSV rendering of an angle and degree to dst[0:3], blue first
func putHSV(dst []byte, aolp, dolp float64) {
	r, g, b := HSVToRGB(aolp*2, dolp, 255)
	dst[0], dst[1], dst[2] = b, g, r
}

// putDeg2x2 scatters the four samples of the super-pixel at output position
// (col, row) into the quadrants of a full size image:
//
//	+-----+-----+
//	| 90  | 45  |
//	+-----+-----+
//	| 135 |  0  |
//	+-----+-----+
func putDeg2x2(dst []byte, width, height, col, row int, g Group) {
	halfW, halfH := width/2, height/2
	top := row * width
	bot := (row + halfH) * width
	dst[top+col] = byte(g.X0Y0)
	dst[top+halfW+col] = byte(g.X1Y0)
	dst[bot+col] = byte(g.X0Y1)
	dst[bot+halfW+col] = byte(g.X1Y1)
}
