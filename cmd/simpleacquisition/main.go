// simpleacquisition grabs a single image from the first camera found
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
)

// Timeout bounds the wait for the image
const Timeout = 2 * time.Second

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	fmt.Fprintln(w, "Get one image")
	frame, err := dev.GetImage(Timeout)
	if err != nil {
		dev.StopStream()
		return err
	}
	fmt.Fprintf(w, "\tGet image (%s; %dx%d; %s)\n",
		demo.Bytes(len(frame.Data)), frame.Width, frame.Height, frame.Format)
	if err := dev.RequeueBuffer(frame); err != nil {
		dev.StopStream()
		return err
	}
	fmt.Fprintln(w, "Stop stream")
	return dev.StopStream()
}

func main() {
	os.Exit(demo.Run("SimpleAcquisition", os.Stdout, run))
}
