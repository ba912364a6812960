package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
)

func open(t *testing.T, fn func(dev camera.Device) error) {
	t.Helper()
	cfg := demo.DefaultConfig()
	cfg.Sensor.Width, cfg.Sensor.Height = 8, 4
	cfg.Sensor.PixelFormat = "PolarizeMono12p"
	if err := demo.RunWith(cfg, io.Discard, func(dev camera.Device, _ demo.Config, _ io.Writer) error {
		return fn(dev)
	}); err != nil {
		t.Fatal(err)
	}
}

func TestBurstOrdersBrightness(t *testing.T) {
	open(t, func(dev camera.Device) error {
		nm := dev.NodeMap()
		nm.SetString("TriggerMode", "On")
		nm.SetString("ExposureAuto", "Off")
		if err := dev.StartStream(0); err != nil {
			return err
		}
		defer dev.StopStream()
		shots, err := burst(dev)
		if err != nil {
			return err
		}
		if len(shots) != len(Exposures) {
			t.Fatalf("expected %d shots, got %d", len(Exposures), len(shots))
		}
		for i := 1; i < len(shots); i++ {
			if shots[i].Mean >= shots[i-1].Mean {
				t.Errorf("expected %s to be darker than %s, got %f and %f",
					shots[i].Exposure.Name, shots[i-1].Exposure.Name, shots[i].Mean, shots[i-1].Mean)
			}
			if shots[i].Frame != shots[i-1].Frame+2 {
				t.Errorf("expected one discarded frame between shots, got frames %d and %d", shots[i-1].Frame, shots[i].Frame)
			}
		}
		return nil
	})
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	open(t, func(dev camera.Device) error {
		if err := run(dev, demo.Config{}, &out); err != nil {
			return err
		}
		auto, _ := dev.NodeMap().GetString("ExposureAuto")
		if auto != "Continuous" {
			t.Errorf("expected ExposureAuto restored to Continuous, got %s", auto)
		}
		return nil
	})
	if n := strings.Count(out.String(), "Low exposure"); n != NumSets {
		t.Errorf("expected %d sets, got %d", NumSets, n)
	}
}
