// acquisition streams a batch of images with the buffers set to hand over
// only the newest frame
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
)

const (
	// NumImages is the number of images grabbed
	NumImages = 25

	// Timeout bounds the wait for each image
	Timeout = 2 * time.Second
)

func acquire(dev camera.Device, w io.Writer) error {
	fmt.Fprintln(w, "Set acquisition mode to 'Continuous'")
	if err := dev.NodeMap().SetString("AcquisitionMode", "Continuous"); err != nil {
		return err
	}
	fmt.Fprintln(w, "Set buffer handling mode to 'NewestOnly'")
	if err := dev.StreamNodeMap().SetString("StreamBufferHandlingMode", "NewestOnly"); err != nil {
		return err
	}
	fmt.Fprintln(w, "Enable stream to auto negotiate packet size")
	if err := dev.StreamNodeMap().SetBool("StreamAutoNegotiatePacketSize", true); err != nil {
		return err
	}
	fmt.Fprintln(w, "Enable stream packet resend")
	if err := dev.StreamNodeMap().SetBool("StreamPacketResendEnable", true); err != nil {
		return err
	}

	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	fmt.Fprintf(w, "Get %d images\n", NumImages)
	for i := 1; i <= NumImages; i++ {
		frame, err := dev.GetImage(Timeout)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		fmt.Fprintf(w, "\tGet image %d (%s; %dx%d; %s; timestamp (ns): %d)\n", i,
			demo.Bytes(len(frame.Data)), frame.Width, frame.Height, frame.Format, frame.Timestamp)
		if err := dev.RequeueBuffer(frame); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	restore, err := demo.Restore(dev.NodeMap(), "AcquisitionMode")
	if err != nil {
		return err
	}
	defer restore()
	restoreStream, err := demo.Restore(dev.StreamNodeMap(),
		"StreamBufferHandlingMode", "StreamAutoNegotiatePacketSize", "StreamPacketResendEnable")
	if err != nil {
		return err
	}
	defer restoreStream()
	return acquire(dev, w)
}

func main() {
	os.Exit(demo.Run("Acquisition", os.Stdout, run))
}
