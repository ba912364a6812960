package main

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
)

func TestRun(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Sensor.Width, cfg.Sensor.Height = 16, 8
	cfg.Sensor.PixelFormat = "PolarizeMono12p"
	cfg.Root = t.TempDir()
	var out bytes.Buffer
	err := demo.RunWith(cfg, &out, func(dev camera.Device, cfg demo.Config, w io.Writer) error {
		if err := run(dev, cfg, w); err != nil {
			return err
		}
		pf, _ := dev.NodeMap().GetString("PixelFormat")
		if pf != "PolarizeMono12p" {
			t.Errorf("expected PixelFormat restored to PolarizeMono12p, got %s", pf)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := Dir(cfg.Root)
	raw, err := os.ReadFile(filepath.Join(dir, "input_image.raw"))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 16*8 {
		t.Errorf("expected 128 bytes of PolarizeMono8 input, got %d", len(raw))
	}
	sizes := map[string][2]int{
		"AoLP.png":   {8, 4},
		"DoLP.png":   {8, 4},
		"HSV.png":    {8, 4},
		"2x2Deg.png": {16, 8},
	}
	for name, sz := range sizes {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			t.Error(err)
			continue
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if b := img.Bounds(); b.Dx() != sz[0] || b.Dy() != sz[1] {
			t.Errorf("%s: expected %dx%d, got %v", name, sz[0], sz[1], b)
		}
	}
}
