package demo

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/camera/sim"
	"github.com/polarlab/polarcam/polar"
)

// UpdateTimeout is how long each discovery round waits for devices to answer
const UpdateTimeout = 100 * time.Millisecond

// ErrNoDevices is returned by OpenFirstDevice when discovery finds nothing
var ErrNoDevices = errors.New("no camera connected")

// NewSystem returns a simulated system holding one camera described by cfg
func NewSystem(cfg Config) (camera.System, error) {
	pf, err := polar.ParsePixelFormat(cfg.Sensor.PixelFormat)
	if err != nil {
		return nil, err
	}
	spec := sim.DefaultSpec()
	spec.SensorWidth, spec.SensorHeight = cfg.Sensor.Width, cfg.Sensor.Height
	spec.Format = pf
	spec.Calibration = cfg.Calibration.Polar()
	spec.BootDelay = cfg.BootDelay
	if cfg.Serial != "" && cfg.Serial != "auto" {
		spec.SerialNumber = cfg.Serial
	}
	return sim.NewSystem(spec), nil
}

// OpenFirstDevice runs discovery until a device matching serial appears or
// timeout elapses, then opens it.  serial "auto" or "" matches any device.
func OpenFirstDevice(sys camera.System, serial string, timeout time.Duration) (camera.Device, error) {
	var found camera.DeviceInfo
	op := func() error {
		if _, err := sys.UpdateDevices(UpdateTimeout); err != nil {
			return backoff.Permanent(err)
		}
		for _, info := range sys.Devices() {
			if serial == "" || serial == "auto" || info.SerialNumber == serial {
				found = info
				return nil
			}
		}
		return ErrNoDevices
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      timeout,
		Clock:               backoff.SystemClock})
	if err != nil {
		if serial != "" && serial != "auto" {
			return nil, fmt.Errorf("%w with serial %s", err, serial)
		}
		return nil, err
	}
	log.Printf("opening %s\n", found)
	return sys.CreateDevice(found)
}

// Example is the body of an example program
type Example func(dev camera.Device, cfg Config, w io.Writer) error

// Run opens the configured camera, runs ex against it, and cleans up.  It
// prints the banner lines the example programs share and returns the process
// exit code, 0 on success and -1 on failure.
func Run(name string, w io.Writer, ex Example) int {
	fmt.Fprintln(w, name)
	cfg, err := LoadConfig(ConfigFileName)
	if err != nil {
		fmt.Fprintf(w, "\nerror: %v\n", err)
		return -1
	}
	closer := SetupLogging(cfg.LogFile)
	defer closer.Close()
	if err := RunWith(cfg, w, ex); err != nil {
		fmt.Fprintf(w, "\nerror: %v\n", err)
		return -1
	}
	return 0
}

// RunWith is Run with an already loaded configuration
func RunWith(cfg Config, w io.Writer, ex Example) error {
	sys, err := NewSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()
	dev, err := OpenFirstDevice(sys, cfg.Serial, cfg.DiscoveryTimeout)
	if err != nil {
		return err
	}
	fmt.Fprint(w, "Commence example\n\n")
	if err := ex(dev, cfg, w); err != nil {
		sys.DestroyDevice(dev)
		return err
	}
	fmt.Fprintln(w, "\nExample complete")
	return sys.DestroyDevice(dev)
}

// Restore snapshots the named features of nm and returns a function that puts
// them back, in the order given.  Examples defer it so they leave the camera
// as they found it.
func Restore(nm *nodemap.NodeMap, names ...string) (func() error, error) {
	snap, err := nm.Snapshot(names...)
	if err != nil {
		return nil, err
	}
	return func() error { return nm.Restore(snap, names...) }, nil
}
