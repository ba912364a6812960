// trigger acquires images on software triggers, waiting for the camera to
// arm before each one
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/demo"
)

const (
	// NumImages is the number of triggered images
	NumImages = 10

	// Timeout bounds the wait for each image
	Timeout = 2 * time.Second

	// ArmPoll is how often TriggerArmed is checked
	ArmPoll = 5 * time.Millisecond
)

// waitArmed polls TriggerArmed until it is true or timeout passes
func waitArmed(nm *nodemap.NodeMap, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		armed, err := nm.GetBool("TriggerArmed")
		if err != nil {
			return err
		}
		if armed {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("trigger not armed after %v", timeout)
		}
		time.Sleep(ArmPoll)
	}
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	nm := dev.NodeMap()
	restore, err := demo.Restore(nm, "TriggerSelector", "TriggerSource", "TriggerMode")
	if err != nil {
		return err
	}
	defer restore()

	fmt.Fprintln(w, "Set trigger selector to 'FrameStart'")
	if err := nm.SetString("TriggerSelector", "FrameStart"); err != nil {
		return err
	}
	fmt.Fprintln(w, "Enable trigger mode")
	if err := nm.SetString("TriggerMode", "On"); err != nil {
		return err
	}
	fmt.Fprintln(w, "Set trigger source to 'Software'")
	if err := nm.SetString("TriggerSource", "Software"); err != nil {
		return err
	}

	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	for i := 1; i <= NumImages; i++ {
		fmt.Fprintln(w, "\tWait until trigger is armed")
		if err := waitArmed(nm, Timeout); err != nil {
			return err
		}
		fmt.Fprintln(w, "\tTrigger image")
		if err := nm.Execute("TriggerSoftware"); err != nil {
			return err
		}
		frame, err := dev.GetImage(Timeout)
		if err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
		fmt.Fprintf(w, "\tGet image %d (%dx%d; timestamp (ns): %d)\n", i, frame.Width, frame.Height, frame.Timestamp)
		if err := dev.RequeueBuffer(frame); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("Trigger", os.Stdout, run))
}
