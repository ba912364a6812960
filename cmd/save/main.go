// save grabs one image, converts it to color and writes it as a PNG
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

// FileName returns where the image is saved under root
func FileName(root string) string {
	return filepath.Join(root, "save", "image.png")
}

func convert(frame *camera.Frame, cal polar.Calibration) (*polar.Image, error) {
	return polar.NewProcessor(cal).Process(frame.Polar(), polar.HSV)
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	frame, err := dev.GetImage(Timeout)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Get image (%dx%d; %s)\n", frame.Width, frame.Height, frame.Format)
	fmt.Fprintln(w, "Convert image to color")
	img, err := convert(frame, cfg.Calibration.Polar())
	if err != nil {
		dev.RequeueBuffer(frame)
		return err
	}
	if err := dev.RequeueBuffer(frame); err != nil {
		return err
	}
	rec := imgrec.NewWriter(imgrec.Params{}, FileName(cfg.Root))
	fn, err := rec.SaveImage(img)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Save image to %s\n", fn)
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("Save", os.Stdout, run))
}
