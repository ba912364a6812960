// chunkdata turns on chunk mode and reads the exposure time, gain and CRC
// that ride along with each image
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/demo"
)

const (
	// NumImages is the number of images grabbed
	NumImages = 5

	// Timeout bounds the wait for each image
	Timeout = 2 * time.Second
)

// Selectors are the chunks enabled
var Selectors = []string{"ExposureTime", "Gain", "CRC"}

// enableChunks sets ChunkEnable for each selector and returns a function that
// puts the previous values back
func enableChunks(nm *nodemap.NodeMap, selectors []string) (func() error, error) {
	sel, err := nm.GetString("ChunkSelector")
	if err != nil {
		return nil, err
	}
	prev := map[string]bool{}
	for _, s := range selectors {
		if err := nm.SetString("ChunkSelector", s); err != nil {
			return nil, err
		}
		on, err := nm.GetBool("ChunkEnable")
		if err != nil {
			return nil, err
		}
		prev[s] = on
		if err := nm.SetBool("ChunkEnable", true); err != nil {
			return nil, err
		}
	}
	return func() error {
		errs := []error{}
		for s, on := range prev {
			errs = append(errs, nm.SetString("ChunkSelector", s), nm.SetBool("ChunkEnable", on))
		}
		errs = append(errs, nm.SetString("ChunkSelector", sel))
		return errors.Join(errs...)
	}, nil
}

func run(dev camera.Device, cfg demo.Config, w io.Writer) error {
	nm := dev.NodeMap()
	restore, err := demo.Restore(nm, "ChunkModeActive")
	if err != nil {
		return err
	}
	defer restore()

	fmt.Fprintln(w, "Activate chunk mode")
	if err := nm.SetBool("ChunkModeActive", true); err != nil {
		return err
	}
	fmt.Fprintln(w, "Enable exposure time, gain and CRC chunks")
	restoreChunks, err := enableChunks(nm, Selectors)
	if err != nil {
		return err
	}
	defer restoreChunks()

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
		exposure, err := frame.Chunk(camera.ChunkExposureTime)
		if err != nil {
			dev.RequeueBuffer(frame)
			return err
		}
		gain, err := frame.Chunk(camera.ChunkGain)
		if err != nil {
			dev.RequeueBuffer(frame)
			return err
		}
		ok, err := frame.VerifyCRC()
		if err != nil {
			dev.RequeueBuffer(frame)
			return err
		}
		fmt.Fprintf(w, "\tImage %d: exposure time %.1f us, gain %.1f dB, CRC ok: %t\n", i, exposure, gain, ok)
		if err := dev.RequeueBuffer(frame); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Stop stream")
	return nil
}

func main() {
	os.Exit(demo.Run("ChunkData", os.Stdout, run))
}
