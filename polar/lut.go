package polar

import "math"

// ColorLUT maps an AoLP bin to a 0xRRGGBB color.  The table walks the edges of
// the RGB cube from red through yellow, green, cyan, blue and magenta and back
// to red, so 0 and 180 degrees share a color.
var ColorLUT = [256]uint32{
	0xFF0000, 0xFF0600, 0xFF0C00, 0xFF1200, 0xFF1800, 0xFF1E00, 0xFF2400, 0xFF2A00,
	0xFF3000, 0xFF3600, 0xFF3C00, 0xFF4200, 0xFF4800, 0xFF4E00, 0xFF5400, 0xFF5A00,
	0xFF6000, 0xFF6600, 0xFF6C00, 0xFF7200, 0xFF7800, 0xFF7E00, 0xFF8400, 0xFF8A00,
	0xFF9000, 0xFF9600, 0xFF9C00, 0xFFA200, 0xFFA800, 0xFFAE00, 0xFFB400, 0xFFBA00,
	0xFFC000, 0xFFC600, 0xFFCC00, 0xFFD200, 0xFFD800, 0xFFDE00, 0xFFE400, 0xFFEA00,
	0xFFF000, 0xFFF600, 0xFFFC00, 0xFCFF00, 0xF6FF00, 0xF0FF00, 0xEAFF00, 0xE4FF00,
	0xDEFF00, 0xD8FF00, 0xD2FF00, 0xCCFF00, 0xC6FF00, 0xC0FF00, 0xBAFF00, 0xB4FF00,
	0xAEFF00, 0xA8FF00, 0xA2FF00, 0x9CFF00, 0x96FF00, 0x90FF00, 0x8AFF00, 0x84FF00,
	0x7EFF00, 0x78FF00, 0x72FF00, 0x6CFF00, 0x66FF00, 0x60FF00, 0x5AFF00, 0x54FF00,
	0x4EFF00, 0x48FF00, 0x42FF00, 0x3CFF00, 0x36FF00, 0x30FF00, 0x2AFF00, 0x24FF00,
	0x1EFF00, 0x18FF00, 0x12FF00, 0x0CFF00, 0x06FF00, 0x00FF00, 0x00FF06, 0x00FF0C,
	0x00FF12, 0x00FF18, 0x00FF1E, 0x00FF24, 0x00FF2A, 0x00FF30, 0x00FF36, 0x00FF3C,
	0x00FF42, 0x00FF48, 0x00FF4E, 0x00FF54, 0x00FF5A, 0x00FF60, 0x00FF66, 0x00FF6C,
	0x00FF72, 0x00FF78, 0x00FF7E, 0x00FF84, 0x00FF8A, 0x00FF90, 0x00FF96, 0x00FF9C,
	0x00FFA2, 0x00FFA8, 0x00FFAE, 0x00FFB4, 0x00FFBA, 0x00FFC0, 0x00FFC6, 0x00FFCC,
	0x00FFD2, 0x00FFD8, 0x00FFDE, 0x00FFE4, 0x00FFEA, 0x00FFF0, 0x00FFF6, 0x00FFFC,
	0x00FCFF, 0x00F6FF, 0x00F0FF, 0x00EAFF, 0x00E4FF, 0x00DEFF, 0x00D8FF, 0x00D2FF,
	0x00CCFF, 0x00C6FF, 0x00C0FF, 0x00BAFF, 0x00B4FF, 0x00AEFF, 0x00A8FF, 0x00A2FF,
	0x009CFF, 0x0096FF, 0x0090FF, 0x008AFF, 0x0084FF, 0x007EFF, 0x0078FF, 0x0072FF,
	0x006CFF, 0x0066FF, 0x0060FF, 0x005AFF, 0x0054FF, 0x004EFF, 0x0048FF, 0x0042FF,
	0x003CFF, 0x0036FF, 0x0030FF, 0x002AFF, 0x0024FF, 0x001EFF, 0x0018FF, 0x0012FF,
	0x000CFF, 0x0006FF, 0x0000FF, 0x0600FF, 0x0C00FF, 0x1200FF, 0x1800FF, 0x1E00FF,
	0x2400FF, 0x2A00FF, 0x3000FF, 0x3600FF, 0x3C00FF, 0x4200FF, 0x4800FF, 0x4E00FF,
	0x5400FF, 0x5A00FF, 0x6000FF, 0x6600FF, 0x6C00FF, 0x7200FF, 0x7800FF, 0x7E00FF,
	0x8400FF, 0x8A00FF, 0x9000FF, 0x9600FF, 0x9C00FF, 0xA200FF, 0xA800FF, 0xAE00FF,
	0xB400FF, 0xBA00FF, 0xC000FF, 0xC600FF, 0xCC00FF, 0xD200FF, 0xD800FF, 0xDE00FF,
	0xE400FF, 0xEA00FF, 0xF000FF, 0xF600FF, 0xFC00FF, 0xFF00FC, 0xFF00F6, 0xFF00F0,
	0xFF00EA, 0xFF00E4, 0xFF00DE, 0xFF00D8, 0xFF00D2, 0xFF00CC, 0xFF00C6, 0xFF00C0,
	0xFF00BA, 0xFF00B4, 0xFF00AE, 0xFF00A8, 0xFF00A2, 0xFF009C, 0xFF0096, 0xFF0090,
	0xFF008A, 0xFF0084, 0xFF007E, 0xFF0078, 0xFF0072, 0xFF006C, 0xFF0066, 0xFF0060,
	0xFF005A, 0xFF0054, 0xFF004E, 0xFF0048, 0xFF0042, 0xFF003C, 0xFF0036, 0xFF0030,
	0xFF002A, 0xFF0024, 0xFF001E, 0xFF0018, 0xFF0012, 0xFF000C, 0xFF0006, 0xFF0000,
}

// lutScale is the width in degrees of one LUT bin
const lutScale = 180.0 / 255.0

// LUTIndex is the bin of ColorLUT for an angle in degrees.  Angles are axial,
// so 180 and beyond wrap around to the start of the table.
func LUTIndex(aolp float64) int {
	if !(aolp > 0) { // catches NaN
		return 0
	}
	if aolp >= 180 {
		aolp = math.Mod(aolp, 180)
	}
	f := math.Floor(aolp / lutScale)
	if f > float64(len(ColorLUT)-1) {
		return len(ColorLUT) - 1
	}
	return int(f)
}
