// polarized grabs one image from a polarization camera and saves the raw
// input alongside each processed output: angle, degree, their HSV
// combination and the four filter angles side by side
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
	"github.com/polarlab/polarcam/imgrec"
	"github.com/polarlab/polarcam/polar"
)

// Timeout bounds the wait for the image
const Timeout = 2 * time.Second

// OutputNames maps each processing mode to the file it is saved as
var OutputNames = map[polar.Mode]string{
	polar.AoLP:   "AoLP.png",
	polar.DoLP:   "DoLP.png",
	polar.HSV:    "HSV.png",
	polar.Deg2x2: "2x2Deg.png",
}

// Dir returns the folder the images are saved in under root
func Dir(root string) string {
	return filepath.Join(root, "polarized")
}

// saveAll writes the raw frame and every processed output into dir
func saveAll(frame polar.Frame, proc *polar.Processor, dir string, w io.Writer) error {
	rec := imgrec.NewWriter(imgrec.Params{}, filepath.Join(dir, "input_image.raw"))
	p, data, err := imgrec.FrameImage(frame)
	if err != nil {
		return err
	}
	rec.SetParams(p)
	fn, err := rec.Save(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\tSave input image to %s\n", fn)
	for _, m := range polar.AllModes {
		img, err := proc.Process(frame, m)
		if err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
		rec.SetFileNamePattern(filepath.Join(dir, OutputNames[m]))
		fn, err := rec.SaveImage(img)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\tSave %s image to %s\n", m, fn)
	}
	return nil
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	nm := dev.NodeMap()
	restore, err := demo.Restore(nm, "PixelFormat")
	if err != nil {
		return err
	}
	defer restore()
	fmt.Fprintf(w, "Set pixel format to '%s'\n", polar.PolarizeMono8)
	if err := nm.SetString("PixelFormat", polar.PolarizeMono8.String()); err != nil {
		return err
	}

	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	frame, err := dev.GetImage(Timeout)
	if err != nil {
		return err
	}
	defer dev.RequeueBuffer(frame)
	fmt.Fprintf(w, "Get image (%dx%d; %s)\n", frame.Width, frame.Height, frame.Format)

	proc := polar.NewProcessor(cfg.Calibration.Polar())
	sum, err := proc.Summarize(frame.Polar())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Mean DoLP %.3f, mean AoLP %.1f deg over %d super-pixels\n", sum.MeanDoLP, sum.MeanAoLP, sum.Groups)
	if err := saveAll(frame.Polar(), proc, Dir(cfg.Root), w); err != nil {
		return err
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("PolarizedCamera", os.Stdout, run))
}
