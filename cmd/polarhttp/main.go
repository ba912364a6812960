package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	yml "gopkg.in/yaml.v2"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/demo"
	"github.com/polarlab/polarcam/generichttp"
	httpcam "github.com/polarlab/polarcam/generichttp/camera"
	"github.com/polarlab/polarcam/imgrec"
	"github.com/polarlab/polarcam/polar"
	"github.com/polarlab/polarcam/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "polar-http.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Pattern is the autowrite file name pattern
	Pattern string `koanf:"Pattern" yaml:"Pattern"`

	// Enabled turns autowrite on at boot
	Enabled bool `koanf:"Enabled" yaml:"Enabled"`
}

type config struct {
	Addr       string                 `koanf:"Addr" yaml:"Addr"`
	Root       string                 `koanf:"Root" yaml:"Root"`
	Camera     demo.Config            `koanf:"Camera" yaml:"Camera"`
	Recorder   recorder               `koanf:"Recorder" yaml:"Recorder"`
	BootupArgs map[string]interface{} `koanf:"BootupArgs" yaml:"BootupArgs"`
}

func defaultConfig() config {
	return config{
		Addr:     ":8000",
		Root:     "/",
		Camera:   demo.DefaultConfig(),
		Recorder: recorder{Pattern: imgrec.DefaultPattern},
		BootupArgs: map[string]interface{}{
			"ExposureAuto":         "Continuous",
			"AcquisitionFrameRate": 30.,
			"Gain":                 0.}}
}

func setupconfig() {
	k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `polar-http exposes control of polarization cameras over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	polar-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `polar-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf generates the configuration file with the default values.
There is no need to do this unless you want to start from the prepopulated defaults when making
a config file.

If for some reason there is an error during server bootup, it may be that a feature is not supported by the camera.
Modify the BootupArgs portion of the config to remove the offending parameters.

Camera.Serial 'auto' causes the server to use the first camera found.

GET /image takes the query parameters mode (raw, AoLP, DoLP, HSV, Deg2x2),
fmt (jpg, png, bmp, tif, fits, raw), scale, exposureTime and timeout.
Prometheus metrics are served at /metrics.
POST {"bool": true} to /lock to refuse changes from other clients.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("polar-http version %v\n", Version)
}

// setup opens the camera and builds the router.  The returned function
// releases the camera.
func setup(cfg config, reg prometheus.Registerer) (http.Handler, func() error, error) {
	sys, err := demo.NewSystem(cfg.Camera)
	if err != nil {
		return nil, nil, err
	}
	dev, err := demo.OpenFirstDevice(sys, cfg.Camera.Serial, cfg.Camera.DiscoveryTimeout)
	if err != nil {
		sys.Close()
		return nil, nil, err
	}
	log.Printf("connected to %s\n", dev.Info())
	if err := dev.NodeMap().Configure(cfg.BootupArgs); err != nil {
		sys.Close()
		return nil, nil, err
	}

	m, err := httpcam.NewMetrics(reg)
	if err != nil {
		sys.Close()
		return nil, nil, err
	}
	rec := imgrec.NewWriter(imgrec.Params{}, cfg.Recorder.Pattern)
	rec.Enable(cfg.Recorder.Enabled)
	h := httpcam.NewHTTPCamera(dev, polar.NewProcessor(cfg.Camera.Calibration.Polar()), rec, m)
	l := locker.New()
	locker.Inject(h, l)

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	r := chi.NewRouter()
	mux := chi.NewRouter()
	mux.Use(l.Check)
	r.Mount(hndlrS, mux)
	h.RT().Bind(mux)
	if g, ok := reg.(prometheus.Gatherer); ok {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return r, func() error { return closeAll(sys, dev) }, nil
}

func closeAll(sys camera.System, dev camera.Device) error {
	if err := sys.DestroyDevice(dev); err != nil {
		sys.Close()
		return err
	}
	return sys.Close()
}

func run() {
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	closer := demo.SetupLogging(cfg.Camera.LogFile)
	defer closer.Close()
	r, shutdown, err := setup(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal(err)
	}
	defer shutdown()
	addr := cfg.Addr + cfg.Root
	log.Println("now listening for requests at ", addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, r))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
