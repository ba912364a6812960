package polar_test

import (
	"fmt"

	"github.com/polarlab/polarcam/polar"
)

func ExampleProcess() {
	f := polar.Frame{Width: 2, Height: 2, Format: polar.PolarizeMono8, Data: []byte{10, 20, 30, 40}}
	img, err := polar.Process(f, polar.DoLP)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(img.Width, img.Height, img.Pix)
	// Output: 1 1 [160]
}

func ExampleCalibration_Stokes() {
	g := polar.Group{X0Y0: 10, X1Y0: 20, X0Y1: 30, X1Y1: 40}
	s := polar.DefaultCalibration.Stokes(g)
	fmt.Printf("S0=%.3f S1=%.3f S2=%.3f AoLP=%.2f DoLP=%.4f\n", s.S0, s.S1, s.S2, s.AoLP(), s.DoLP())
	// Output: S0=51.461 S1=30.691 S2=-10.150 AoLP=170.85 DoLP=0.6281
}

func ExampleParsePixelFormat() {
	p, _ := polar.ParsePixelFormat("PolarizeMono12p")
	fmt.Println(p, p.BitsPerPixel(), p.Stride(2448))
	// Output: PolarizeMono12p 12 3672
}
