package polar_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polarlab/polarcam/polar"
)

func singleGroupMono8() polar.Frame {
	return polar.Frame{Width: 2, Height: 2, Format: polar.PolarizeMono8, Data: []byte{10, 20, 30, 40}}
}

func TestProcessSingleGroup(t *testing.T) {
	f := singleGroupMono8()
	cases := []struct {
		mode     polar.Mode
		format   polar.ImageFormat
		expected []byte
	}{
		{polar.AoLP, polar.RGB8, []byte{0x4E, 0x00, 0xFF}},
		{polar.DoLP, polar.Mono8, []byte{160}},
		{polar.HSV, polar.RGB8, []byte{143, 94, 255}},
		{polar.Deg2x2, polar.Mono8, []byte{10, 20, 30, 40}},
	}
	for _, c := range cases {
		img, err := polar.Process(f, c.mode)
		if err != nil {
			t.Fatalf("%v: %v", c.mode, err)
		}
		if img.Format != c.format {
			t.Errorf("%v: expected format %v got %v", c.mode, c.format, img.Format)
		}
		if diff := cmp.Diff(c.expected, img.Pix); diff != "" {
			t.Errorf("%v: pixels mismatch (-want +got):\n%s", c.mode, diff)
		}
	}
}

func TestProcessAoLPUsesLUT(t *testing.T) {
	img, err := polar.Process(singleGroupMono8(), polar.AoLP)
	if err != nil {
		t.Fatal(err)
	}
	c := polar.ColorLUT[242]
	expected := []byte{byte(c), byte(c >> 8), byte(c >> 16)}
	if diff := cmp.Diff(expected, img.Pix); diff != "" {
		t.Errorf("AoLP pixel is not LUT entry 242 (-want +got):\n%s", diff)
	}
	if img.Order != polar.OrderBGR {
		t.Errorf("expected BGR channel order")
	}
}

func TestProcessDeg2x2Mono16(t *testing.T) {
	data := make([]byte, 8)
	for i, w := range []uint16{0x0100, 0x0200, 0x0300, 0x0400} {
		binary.LittleEndian.PutUint16(data[2*i:], w)
	}
	f := polar.Frame{Width: 2, Height: 2, Format: polar.PolarizeMono16, Data: data}
	img, err := polar.Process(f, polar.Deg2x2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, img.Pix); diff != "" {
		t.Errorf("Deg2x2 mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessDeg2x2Quadrants(t *testing.T) {
	// 4x4 Mono8 frame, every group holds (90, 45, 135, 0) = (1, 2, 3, 4) plus 10*group
	data := []byte{
		1, 2, 11, 12,
		3, 4, 13, 14,
		21, 22, 31, 32,
		23, 24, 33, 34,
	}
	f := polar.Frame{Width: 4, Height: 4, Format: polar.PolarizeMono8, Data: data}
	img, err := polar.Process(f, polar.Deg2x2)
	if err != nil {
		t.Fatal(err)
	}
	expected := []byte{
		1, 11, 2, 12,
		21, 31, 22, 32,
		3, 13, 4, 14,
		23, 33, 24, 34,
	}
	if diff := cmp.Diff(expected, img.Pix); diff != "" {
		t.Errorf("Deg2x2 quadrants mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessDeg2x2Mono12Reduces(t *testing.T) {
	samples := []uint16{0xFFF, 0x800, 0x010, 0x00F}
	data, err := polar.Pack(polar.PolarizeMono12Packed, 2, 2, samples)
	if err != nil {
		t.Fatal(err)
	}
	f := polar.Frame{Width: 2, Height: 2, Format: polar.PolarizeMono12Packed, Data: data}
	img, err := polar.Process(f, polar.Deg2x2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0xFF, 0x80, 0x01, 0x00}, img.Pix); diff != "" {
		t.Errorf("Mono12 reduction mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessUniformFrame(t *testing.T) {
	const w, h = 8, 6
	data := make([]byte, w*h)
	for i := range data {
		data[i] = 128
	}
	f := polar.Frame{Width: w, Height: h, Format: polar.PolarizeMono8, Data: data}
	p := polar.NewProcessor(polar.UnitCalibration)

	dolp, err := p.Process(f, polar.DoLP)
	if err != nil {
		t.Fatal(err)
	}
	if dolp.Width != w/2 || dolp.Height != h/2 || len(dolp.Pix) != w*h/4 {
		t.Errorf("unexpected DoLP geometry %dx%d, %d bytes", dolp.Width, dolp.Height, len(dolp.Pix))
	}
	for i, v := range dolp.Pix {
		if v != 0 {
			t.Errorf("DoLP pixel %d: expected 0 got %d", i, v)
		}
	}

	aolp, err := p.Process(f, polar.AoLP)
	if err != nil {
		t.Fatal(err)
	}
	if len(aolp.Pix) != 3*w*h/4 {
		t.Errorf("expected %d AoLP bytes got %d", 3*w*h/4, len(aolp.Pix))
	}
	for i := 0; i < len(aolp.Pix); i += 3 {
		if aolp.Pix[i] != 0x00 || aolp.Pix[i+1] != 0x00 || aolp.Pix[i+2] != 0xFF {
			t.Errorf("AoLP pixel %d: expected red got %v", i/3, aolp.Pix[i:i+3])
		}
	}
}

func TestProcessRejectsOddDimensions(t *testing.T) {
	f := polar.Frame{Width: 3, Height: 2, Format: polar.PolarizeMono8, Data: make([]byte, 6)}
	for _, m := range polar.AllModes {
		if _, err := polar.Process(f, m); !errors.Is(err, polar.ErrInvalidDimensions) {
			t.Errorf("%v: expected ErrInvalidDimensions, got %v", m, err)
		}
	}
}

func TestProcessRejectsShortBuffer(t *testing.T) {
	f := polar.Frame{Width: 4, Height: 2, Format: polar.PolarizeMono12p, Data: make([]byte, 11)}
	if _, err := polar.Process(f, polar.DoLP); !errors.Is(err, polar.ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestProcessRejectsNegativeDimensions(t *testing.T) {
	f := polar.Frame{Width: -2, Height: 2, Format: polar.PolarizeMono8}
	if _, err := polar.Process(f, polar.Deg2x2); !errors.Is(err, polar.ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestProcessRejectsUnknownMode(t *testing.T) {
	if _, err := polar.Process(singleGroupMono8(), polar.Mode(99)); !errors.Is(err, polar.ErrOutputModeUnsupported) {
		t.Errorf("expected ErrOutputModeUnsupported, got %v", err)
	}
}

func TestProcessRejectsNaNCalibration(t *testing.T) {
	p := polar.NewProcessor(polar.Calibration{F0: math.NaN(), F45: 1, F90: 1, F135: 1})
	if _, err := p.Process(singleGroupMono8(), polar.AoLP); !errors.Is(err, polar.ErrNumericDomain) {
		t.Errorf("expected ErrNumericDomain, got %v", err)
	}
}

func TestProcessDoesNotModifyInput(t *testing.T) {
	f := singleGroupMono8()
	before := append([]byte(nil), f.Data...)
	for _, m := range polar.AllModes {
		if _, err := polar.Process(f, m); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(before, f.Data); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range polar.AllModes {
		got, err := polar.ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q): expected %v got %v, %v", m.String(), m, got, err)
		}
	}
	if _, err := polar.ParseMode("stokes"); !errors.Is(err, polar.ErrOutputModeUnsupported) {
		t.Errorf("expected ErrOutputModeUnsupported, got %v", err)
	}
}

func TestImageStdSwapsChannels(t *testing.T) {
	img, err := polar.Process(singleGroupMono8(), polar.AoLP)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.Std().At(0, 0).RGBA()
	if r>>8 != 0xFF || g>>8 != 0x00 || b>>8 != 0x4E {
		t.Errorf("expected RGB (FF, 00, 4E) got (%X, %X, %X)", r>>8, g>>8, b>>8)
	}
}

func TestFrameSamplesMatchesPack(t *testing.T) {
	samples := []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	data, err := polar.Pack(polar.PolarizeMono12p, 4, 4, samples)
	if err != nil {
		t.Fatal(err)
	}
	f := polar.Frame{Width: 4, Height: 4, Format: polar.PolarizeMono12p, Data: data}
	got, err := f.Samples()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if m := polar.PolarizeMono12p.MaxValue(); m != 4095 {
		t.Errorf("expected 12-bit max 4095 got %d", m)
	}
}

// TestProcessEveryFormat renders the same samples in every pixel format and
// checks each mode against the PolarizeMono16 rendition
func TestProcessEveryFormat(t *testing.T) {
	const w, h = 6, 4
	formats := []struct {
		format polar.PixelFormat
		bits   uint
	}{
		{polar.PolarizeMono8, 8},
		{polar.PolarizeMono12p, 12},
		{polar.PolarizeMono12Packed, 12},
		{polar.PolarizeMono16, 16},
	}
	sizes := map[polar.Mode]int{
		polar.AoLP:   3 * (w / 2) * (h / 2),
		polar.DoLP:   (w / 2) * (h / 2),
		polar.HSV:    3 * (w / 2) * (h / 2),
		polar.Deg2x2: w * h,
	}
	for _, fc := range formats {
		max := uint32(1)<<fc.bits - 1
		samples := make([]uint16, w*h)
		for i := range samples {
			samples[i] = uint16((uint32(i) * 2654435761 >> 9) & max)
		}
		frame := pack(t, fc.format, w, h, samples)
		ref := pack(t, polar.PolarizeMono16, w, h, samples)
		shifted := make([]uint16, len(samples))
		for i, s := range samples {
			shifted[i] = s << (16 - fc.bits)
		}
		deg := pack(t, polar.PolarizeMono16, w, h, shifted)

		for _, m := range polar.AllModes {
			got, err := polar.Process(frame, m)
			if err != nil {
				t.Fatalf("%v %v: %v", fc.format, m, err)
			}
			if len(got.Pix) != sizes[m] {
				t.Errorf("%v %v: expected %d bytes got %d", fc.format, m, sizes[m], len(got.Pix))
			}
			src := ref
			if m == polar.Deg2x2 {
				src = deg
			}
			want, err := polar.Process(src, m)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
				t.Errorf("%v %v: differs from PolarizeMono16 (-want +got):\n%s", fc.format, m, diff)
			}
		}
	}
}

func pack(t *testing.T, p polar.PixelFormat, w, h int, samples []uint16) polar.Frame {
	t.Helper()
	data, err := polar.Pack(p, w, h, samples)
	if err != nil {
		t.Fatal(err)
	}
	return polar.Frame{Width: w, Height: h, Format: p, Data: data}
}

func TestFrameWalkersRejectBadFrames(t *testing.T) {
	bad := polar.Frame{Width: 4, Height: 2, Format: polar.PolarizeMono12p, Data: make([]byte, 5)}
	calls := 0
	if err := bad.Each(func(int, int, polar.Group) { calls++ }); !errors.Is(err, polar.ErrInvalidDimensions) {
		t.Errorf("Each: expected ErrInvalidDimensions, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Each: expected no callbacks on a short buffer, got %d", calls)
	}
	if _, err := bad.Samples(); !errors.Is(err, polar.ErrInvalidDimensions) {
		t.Errorf("Samples: expected ErrInvalidDimensions, got %v", err)
	}
	if _, err := polar.NewProcessor(polar.DefaultCalibration).Summarize(bad); !errors.Is(err, polar.ErrInvalidDimensions) {
		t.Errorf("Summarize: expected ErrInvalidDimensions, got %v", err)
	}

	good := polar.Frame{Width: 4, Height: 2, Format: polar.PolarizeMono12p, Data: make([]byte, 12)}
	if err := good.Each(func(int, int, polar.Group) { calls++ }); err != nil || calls != 2 {
		t.Errorf("Each: expected 2 groups and no error, got %d and %v", calls, err)
	}
}
