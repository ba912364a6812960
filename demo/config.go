/*
Package demo holds the scaffolding shared by the example programs: their
configuration file, logging, and opening the first camera.

Every example reads polarcam.yml from the working directory if it exists.
Missing keys take the defaults of DefaultConfig.
*/
package demo

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/polarlab/polarcam/polar"
)

// ConfigFileName is the file LoadConfig reads by default
const ConfigFileName = "polarcam.yml"

// Sensor is the geometry and format of the simulated sensor
type Sensor struct {
	Width       int    `koanf:"Width" yaml:"Width"`
	Height      int    `koanf:"Height" yaml:"Height"`
	PixelFormat string `koanf:"PixelFormat" yaml:"PixelFormat"`
}

// Calibration is the per-angle gain, see polar.Calibration
type Calibration struct {
	F0   float64 `koanf:"F0" yaml:"F0"`
	F45  float64 `koanf:"F45" yaml:"F45"`
	F90  float64 `koanf:"F90" yaml:"F90"`
	F135 float64 `koanf:"F135" yaml:"F135"`
}

// Polar converts to a polar.Calibration
func (c Calibration) Polar() polar.Calibration {
	return polar.Calibration{F0: c.F0, F45: c.F45, F90: c.F90, F135: c.F135}
}

// Config is the configuration shared by the example programs
type Config struct {
	// Serial selects the camera by serial number; "auto" takes the first one found
	Serial string `koanf:"Serial" yaml:"Serial"`

	// Root is the folder images are saved under
	Root string `koanf:"Root" yaml:"Root"`

	// LogFile, if not empty, receives a copy of the log, rotated by size
	LogFile string `koanf:"LogFile" yaml:"LogFile"`

	// DiscoveryTimeout bounds how long to wait for a camera to appear
	DiscoveryTimeout time.Duration `koanf:"DiscoveryTimeout" yaml:"DiscoveryTimeout"`

	// BootDelay is how long the simulated camera takes to answer discovery
	BootDelay time.Duration `koanf:"BootDelay" yaml:"BootDelay"`

	Sensor      Sensor      `koanf:"Sensor" yaml:"Sensor"`
	Calibration Calibration `koanf:"Calibration" yaml:"Calibration"`
}

// DefaultConfig is the configuration used when no file is present
func DefaultConfig() Config {
	c := polar.DefaultCalibration
	return Config{
		Serial:           "auto",
		Root:             "Images",
		DiscoveryTimeout: 3 * time.Second,
		Sensor:           Sensor{Width: 2448, Height: 2048, PixelFormat: polar.PolarizeMono8.String()},
		Calibration:      Calibration{F0: c.F0, F45: c.F45, F90: c.F90, F135: c.F135},
	}
}

// LoadConfig loads the defaults, then overlays the YAML file fn.  A missing
// file is not an error.
func LoadConfig(fn string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, err
	}
	if err := k.Load(file.Provider(fn), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("error loading config %s: %w", fn, err)
		}
	}
	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	if _, err := polar.ParsePixelFormat(cfg.Sensor.PixelFormat); err != nil {
		return Config{}, err
	}
	if cfg.Sensor.Width <= 0 || cfg.Sensor.Height <= 0 || cfg.Sensor.Width%2 != 0 || cfg.Sensor.Height%2 != 0 {
		return Config{}, fmt.Errorf("%w: sensor %dx%d", polar.ErrInvalidDimensions, cfg.Sensor.Width, cfg.Sensor.Height)
	}
	return cfg, nil
}
