// savepattern saves a stream of images under names built from a pattern of
// tags, an image counter and the device timestamp
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
)

const (
	// NumImages is the number of images saved
	NumImages = 25

	// Timeout bounds the wait for each image
	Timeout = 2 * time.Second
)

// Pattern returns the file name pattern under root
func Pattern(root string) string {
	return filepath.Join(root, "savepattern", "image<count>-<timestamp>.bmp")
}

func save(rec *imgrec.Writer, frame *camera.Frame) (string, error) {
	p, data, err := imgrec.FrameImage(frame.Polar())
	if err != nil {
		return "", err
	}
	rec.SetParams(p)
	rec.SetTimestamp(frame.Timestamp)
	return rec.Save(data)
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	rec := imgrec.NewWriter(imgrec.Params{}, Pattern(cfg.Root))
	fmt.Fprintf(w, "Set file name pattern to %s\n", rec.Pattern())

	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	fmt.Fprintf(w, "Save %d images\n", NumImages)
	for i := 1; i <= NumImages; i++ {
		frame, err := dev.GetImage(Timeout)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		fn, err := save(rec, frame)
		if err != nil {
			dev.RequeueBuffer(frame)
			return err
		}
		fmt.Fprintf(w, "\tSave %s\n", fn)
		if err := dev.RequeueBuffer(frame); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("Save_FileNamePattern", os.Stdout, run))
}
