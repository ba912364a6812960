// exposurehdr triggers bursts of three images at high, mid and low exposure,
// the raw material of a high dynamic range composite.  After each exposure
// change one image is discarded so the next reflects the new setting.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
)

const (
	// NumSets is the number of high/mid/low bursts
	NumSets = 5

	// Timeout bounds the wait for each image
	Timeout = 2 * time.Second
)

// Exposure is one step of a burst
type Exposure struct {
	Name string
	// Time is in microseconds
	Time float64
}

// Exposures is the burst, brightest first
var Exposures = []Exposure{{"High", 2500}, {"Mid", 1000}, {"Low", 500}}

// Shot is one image of a burst
type Shot struct {
	Exposure Exposure
	Mean     float64
	Frame    uint64
}

// trigger fires a software trigger and returns the resulting image's mean
// sample value
func trigger(dev camera.Device) (float64, uint64, error) {
	if err := dev.NodeMap().Execute("TriggerSoftware"); err != nil {
		return 0, 0, err
	}
	frame, err := dev.GetImage(Timeout)
	if err != nil {
		return 0, 0, err
	}
	defer dev.RequeueBuffer(frame)
	samples, err := frame.Polar().Samples()
	if err != nil {
		return 0, 0, err
	}
	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	return stat.Mean(x, nil), frame.FrameID, nil
}

// burst takes one image at each exposure
func burst(dev camera.Device) ([]Shot, error) {
	nm := dev.NodeMap()
	shots := make([]Shot, 0, len(Exposures))
	for _, e := range Exposures {
		if err := nm.SetFloat("ExposureTime", e.Time); err != nil {
			return nil, err
		}
		// the image in flight when the exposure changed
		if _, _, err := trigger(dev); err != nil {
			return nil, err
		}
		mean, id, err := trigger(dev)
		if err != nil {
			return nil, err
		}
		shots = append(shots, Shot{Exposure: e, Mean: mean, Frame: id})
	}
	return shots, nil
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	nm := dev.NodeMap()
	restore, err := demo.Restore(nm, "TriggerSelector", "TriggerSource", "TriggerMode", "ExposureTime", "ExposureAuto")
	if err != nil {
		return err
	}
	defer restore()

	fmt.Fprintln(w, "Set trigger mode to software")
	for _, kv := range [][2]string{{"TriggerSelector", "FrameStart"}, {"TriggerMode", "On"}, {"TriggerSource", "Software"}} {
		if err := nm.SetString(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Disable automatic exposure")
	if err := nm.SetString("ExposureAuto", "Off"); err != nil {
		return err
	}

	fmt.Fprintln(w, "Start stream")
	if err := dev.StartStream(0); err != nil {
		return err
	}
	defer dev.StopStream()
	for i := 1; i <= NumSets; i++ {
		fmt.Fprintf(w, "Get HDR image set %d\n", i)
		shots, err := burst(dev)
		if err != nil {
			return fmt.Errorf("set %d: %w", i, err)
		}
		for _, s := range shots {
			fmt.Fprintf(w, "\t%s exposure (%.0f us): frame %d, mean %.1f\n", s.Exposure.Name, s.Exposure.Time, s.Frame, s.Mean)
		}
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("ExposureHDR", os.Stdout, run))
}
