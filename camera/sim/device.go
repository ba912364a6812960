/*
Package sim implements a simulated polarized camera.

The simulated device renders a synthetic scene in any of the polarized pixel
formats and honours the acquisition, trigger, exposure, chunk and buffer
handling features a real device exposes, so the example programs and the HTTP
server run without hardware.
*/
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/polar"
	"golang.org/x/time/rate"
)

const (
	// DefaultBufferCount is the number of buffers StartStream(0) allocates
	DefaultBufferCount = 10

	// triggerPoll is how often a device waiting on a trigger rechecks TriggerMode
	triggerPoll = 50 * time.Millisecond
)

// chunk selector entries and the chunk each one enables
var chunkSelectors = map[string]string{
	"ExposureTime": camera.ChunkExposureTime,
	"Gain":         camera.ChunkGain,
	"Timestamp":    camera.ChunkTimestamp,
	"FrameID":      camera.ChunkFrameID,
	"CRC":          camera.ChunkCRC,
}

// Spec describes a simulated device
type Spec struct {
	Model        string
	SerialNumber string

	// SensorWidth and SensorHeight are the full sensor size, both even
	SensorWidth  int
	SensorHeight int

	// Format is the power-on pixel format
	Format polar.PixelFormat

	// Calibration is the per-angle gain of the sensor.  Rendered frames are
	// divided by it.
	Calibration polar.Calibration

	// BootDelay is how long after the System is created the device starts
	// answering discovery
	BootDelay time.Duration

	// Scene is the light on the sensor, Target if nil
	Scene Scene
}

// DefaultSpec is a 2448x2048 polarized camera
func DefaultSpec() Spec {
	return Spec{
		Model:        "PHX050S-P",
		SerialNumber: "220100001",
		SensorWidth:  2448,
		SensorHeight: 2048,
		Format:       polar.PolarizeMono8,
		Calibration:  polar.DefaultCalibration,
	}
}

// streamConfig is latched when the stream starts
type streamConfig struct {
	width, height int
	format        polar.PixelFormat
	mode          string
	frameCount    int64
	handling      string
}

// Device is a simulated camera.  It implements camera.Device.
type Device struct {
	spec   Spec
	info   camera.DeviceInfo
	nodes  *nodemap.NodeMap
	stream *nodemap.NodeMap

	mu          sync.Mutex
	chunkEnable map[string]bool
	streaming   bool
	cfg         streamConfig
	cancel      context.CancelFunc
	done        chan struct{}
	trigger     chan struct{}
	notify      chan struct{}
	free        []*camera.Frame
	queued      []*camera.Frame
	out         map[*camera.Frame]bool
	lost        int64
	delivered   int64
	epoch       time.Time

	// touched only by the acquisition goroutine
	frameID  uint64
	template []byte
	tmplKey  templateKey
}

type templateKey struct {
	width, height int
	format        polar.PixelFormat
	level         float64
}

// NewDevice creates a simulated device from spec
func NewDevice(spec Spec, info camera.DeviceInfo) *Device {
	if spec.Scene == nil {
		spec.Scene = Target
	}
	d := &Device{
		spec:        spec,
		info:        info,
		chunkEnable: map[string]bool{},
		trigger:     make(chan struct{}, 1),
		notify:      make(chan struct{}, 1),
		epoch:       time.Now(),
	}
	d.nodes = d.deviceNodes()
	d.stream = d.streamNodes()
	return d
}

func (d *Device) deviceNodes() *nodemap.NodeMap {
	s := d.spec
	even := func(name string) func(interface{}) error {
		return func(v interface{}) error {
			if v.(int64)%2 != 0 {
				return fmt.Errorf("%w: %s=%d must be even", nodemap.ErrOutOfRange, name, v)
			}
			return nil
		}
	}
	return nodemap.New(
		nodemap.Node{Name: "DeviceVendorName", Kind: nodemap.String, Value: d.info.Vendor, ReadOnly: true},
		nodemap.Node{Name: "DeviceModelName", Kind: nodemap.String, Value: s.Model, ReadOnly: true},
		nodemap.Node{Name: "DeviceSerialNumber", Kind: nodemap.String, Value: s.SerialNumber, ReadOnly: true},
		nodemap.Node{Name: "DeviceUserID", Kind: nodemap.String, Value: ""},
		nodemap.Node{Name: "SensorWidth", Kind: nodemap.Int, Value: int64(s.SensorWidth), ReadOnly: true},
		nodemap.Node{Name: "SensorHeight", Kind: nodemap.Int, Value: int64(s.SensorHeight), ReadOnly: true},
		nodemap.Node{Name: "Width", Kind: nodemap.Int, Value: int64(s.SensorWidth),
			Min: 2, Max: float64(s.SensorWidth), Streaming: true, Setter: even("Width")},
		nodemap.Node{Name: "Height", Kind: nodemap.Int, Value: int64(s.SensorHeight),
			Min: 2, Max: float64(s.SensorHeight), Streaming: true, Setter: even("Height")},
		nodemap.Node{Name: "PixelFormat", Kind: nodemap.Enum, Value: s.Format.String(),
			Entries: polar.Formats, Streaming: true},
		nodemap.Node{Name: "PayloadSize", Kind: nodemap.Int, ReadOnly: true, Getter: d.payloadSize},
		nodemap.Node{Name: "AcquisitionMode", Kind: nodemap.Enum, Value: "Continuous",
			Entries: []string{"Continuous", "SingleFrame", "MultiFrame"}, Streaming: true},
		nodemap.Node{Name: "AcquisitionFrameCount", Kind: nodemap.Int, Value: int64(1),
			Min: 1, Max: 65535, Streaming: true},
		nodemap.Node{Name: "AcquisitionFrameRate", Kind: nodemap.Float, Value: 30.,
			Min: 1, Max: 120, Unit: "Hz"},
		nodemap.Node{Name: "ExposureAuto", Kind: nodemap.Enum, Value: "Continuous",
			Entries: []string{"Off", "Continuous"}},
		nodemap.Node{Name: "ExposureTime", Kind: nodemap.Float, Value: 10000.,
			Min: 30, Max: 1e6, Unit: "us", Setter: d.checkManualExposure},
		nodemap.Node{Name: "Gain", Kind: nodemap.Float, Value: 0., Min: 0, Max: 48, Unit: "dB"},
		nodemap.Node{Name: "TriggerSelector", Kind: nodemap.Enum, Value: "FrameStart",
			Entries: []string{"FrameStart"}},
		nodemap.Node{Name: "TriggerMode", Kind: nodemap.Enum, Value: "Off",
			Entries: []string{"Off", "On"}},
		nodemap.Node{Name: "TriggerSource", Kind: nodemap.Enum, Value: "Software",
			Entries: []string{"Software", "Line0"}},
		nodemap.Node{Name: "TriggerSoftware", Kind: nodemap.Command, Exec: d.softwareTrigger},
		nodemap.Node{Name: "TriggerArmed", Kind: nodemap.Bool, ReadOnly: true, Getter: d.triggerArmed},
		nodemap.Node{Name: "ChunkModeActive", Kind: nodemap.Bool, Value: false},
		nodemap.Node{Name: "ChunkSelector", Kind: nodemap.Enum, Value: "ExposureTime",
			Entries: []string{"ExposureTime", "Gain", "Timestamp", "FrameID", "CRC"}},
		nodemap.Node{Name: "ChunkEnable", Kind: nodemap.Bool, Getter: d.getChunkEnable, Setter: d.setChunkEnable},
	)
}

func (d *Device) streamNodes() *nodemap.NodeMap {
	return nodemap.New(
		nodemap.Node{Name: "StreamBufferHandlingMode", Kind: nodemap.Enum, Value: "OldestFirst",
			Entries: []string{"OldestFirst", "OldestFirstOverwrite", "NewestOnly"}, Streaming: true},
		nodemap.Node{Name: "StreamAutoNegotiatePacketSize", Kind: nodemap.Bool, Value: false, Streaming: true},
		nodemap.Node{Name: "StreamPacketResendEnable", Kind: nodemap.Bool, Value: false, Streaming: true},
		nodemap.Node{Name: "StreamDefaultBufferCount", Kind: nodemap.Int, Value: int64(DefaultBufferCount),
			Min: 1, Max: 1000, Streaming: true},
		nodemap.Node{Name: "StreamLostFrameCount", Kind: nodemap.Int, ReadOnly: true,
			Getter: func() interface{} { d.mu.Lock(); defer d.mu.Unlock(); return d.lost }},
		nodemap.Node{Name: "StreamDeliveredFrameCount", Kind: nodemap.Int, ReadOnly: true,
			Getter: func() interface{} { d.mu.Lock(); defer d.mu.Unlock(); return d.delivered }},
	)
}

// Info describes the device
func (d *Device) Info() camera.DeviceInfo { return d.info }

// NodeMap is the device node map
func (d *Device) NodeMap() *nodemap.NodeMap { return d.nodes }

// StreamNodeMap is the stream node map
func (d *Device) StreamNodeMap() *nodemap.NodeMap { return d.stream }

func (d *Device) payloadSize() interface{} {
	w, _ := d.nodes.GetInt("Width")
	h, _ := d.nodes.GetInt("Height")
	name, _ := d.nodes.GetString("PixelFormat")
	p, err := polar.ParsePixelFormat(name)
	if err != nil {
		return int64(0)
	}
	return int64(p.FrameSize(int(w), int(h)))
}

func (d *Device) checkManualExposure(interface{}) error {
	mode, err := d.nodes.GetString("ExposureAuto")
	if err != nil {
		return err
	}
	if mode != "Off" {
		return fmt.Errorf("%w: ExposureTime while ExposureAuto is %s", nodemap.ErrReadOnly, mode)
	}
	return nil
}

func (d *Device) getChunkEnable() interface{} {
	sel, _ := d.nodes.GetString("ChunkSelector")
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chunkEnable[sel]
}

func (d *Device) setChunkEnable(v interface{}) error {
	sel, err := d.nodes.GetString("ChunkSelector")
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.chunkEnable[sel] = v.(bool)
	d.mu.Unlock()
	return nil
}

func (d *Device) triggerMode() bool {
	mode, _ := d.nodes.GetString("TriggerMode")
	src, _ := d.nodes.GetString("TriggerSource")
	return mode == "On" && src == "Software"
}

func (d *Device) triggerArmed() interface{} {
	d.mu.Lock()
	streaming := d.streaming
	d.mu.Unlock()
	return streaming && d.triggerMode() && len(d.trigger) == 0
}

func (d *Device) softwareTrigger() error {
	d.mu.Lock()
	streaming := d.streaming
	d.mu.Unlock()
	if !streaming {
		return camera.ErrNotStreaming
	}
	if !d.triggerMode() {
		return fmt.Errorf("TriggerSoftware requires TriggerMode On with TriggerSource Software")
	}
	select {
	case d.trigger <- struct{}{}:
	default:
		// a trigger is already pending
	}
	return nil
}

// StartStream allocates nbuf buffers and starts acquisition.  With nbuf zero,
// StreamDefaultBufferCount buffers are used.
func (d *Device) StartStream(nbuf int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.streaming {
		return camera.ErrStreaming
	}
	cfg, err := d.latch()
	if err != nil {
		return err
	}
	if nbuf <= 0 {
		n, _ := d.stream.GetInt("StreamDefaultBufferCount")
		nbuf = int(n)
	}
	size := cfg.format.FrameSize(cfg.width, cfg.height)
	d.free = make([]*camera.Frame, nbuf)
	for i := range d.free {
		d.free[i] = &camera.Frame{Data: make([]byte, size)}
	}
	d.queued = nil
	d.out = map[*camera.Frame]bool{}
	d.lost, d.delivered, d.frameID = 0, 0, 0
	d.cfg = cfg
	select {
	case <-d.trigger:
	default:
	}

	d.nodes.Lock()
	d.stream.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.streaming = true
	go d.acquire(ctx, cfg, d.done)
	return nil
}

// latch reads the features that are fixed for the life of a stream
func (d *Device) latch() (streamConfig, error) {
	w, err := d.nodes.GetInt("Width")
	if err != nil {
		return streamConfig{}, err
	}
	h, err := d.nodes.GetInt("Height")
	if err != nil {
		return streamConfig{}, err
	}
	name, err := d.nodes.GetString("PixelFormat")
	if err != nil {
		return streamConfig{}, err
	}
	p, err := polar.ParsePixelFormat(name)
	if err != nil {
		return streamConfig{}, err
	}
	mode, _ := d.nodes.GetString("AcquisitionMode")
	count, _ := d.nodes.GetInt("AcquisitionFrameCount")
	handling, _ := d.stream.GetString("StreamBufferHandlingMode")
	return streamConfig{width: int(w), height: int(h), format: p, mode: mode, frameCount: count, handling: handling}, nil
}

// acquire produces frames until ctx is cancelled or the acquisition mode's
// frame count is reached
func (d *Device) acquire(ctx context.Context, cfg streamConfig, done chan struct{}) {
	defer close(done)
	fps, _ := d.nodes.GetFloat("AcquisitionFrameRate")
	lim := rate.NewLimiter(rate.Limit(fps), 1)
	var produced int64
	for {
		switch {
		case cfg.mode == "SingleFrame" && produced >= 1:
			return
		case cfg.mode == "MultiFrame" && produced >= cfg.frameCount:
			return
		}
		if d.triggerMode() {
			select {
			case <-ctx.Done():
				return
			case <-d.trigger:
			case <-time.After(triggerPoll):
				continue
			}
		} else {
			fps, _ = d.nodes.GetFloat("AcquisitionFrameRate")
			if lim.Limit() != rate.Limit(fps) {
				lim.SetLimit(rate.Limit(fps))
			}
			if err := lim.Wait(ctx); err != nil {
				return
			}
		}
		if err := d.expose(cfg); err != nil {
			return
		}
		produced++
	}
}

// expose fills one buffer and queues it according to the buffer handling mode
func (d *Device) expose(cfg streamConfig) error {
	d.mu.Lock()
	var f *camera.Frame
	if n := len(d.free); n > 0 {
		f, d.free = d.free[n-1], d.free[:n-1]
	} else if cfg.handling != "OldestFirst" && len(d.queued) > 0 {
		f, d.queued = d.queued[0], d.queued[1:]
		d.lost++
	} else {
		d.lost++
		d.mu.Unlock()
		return nil
	}
	chunks := make(map[string]bool, len(d.chunkEnable))
	for k, v := range d.chunkEnable {
		chunks[k] = v
	}
	d.mu.Unlock()

	ts := uint64(time.Since(d.epoch).Nanoseconds())
	exposure, _ := d.nodes.GetFloat("ExposureTime")
	gain, _ := d.nodes.GetFloat("Gain")
	auto, _ := d.nodes.GetString("ExposureAuto")
	chunkMode, _ := d.nodes.GetBool("ChunkModeActive")
	level := brightness(exposure, gain, auto != "Off")
	if err := d.fill(f, cfg, level); err != nil {
		d.mu.Lock()
		d.free = append(d.free, f)
		d.mu.Unlock()
		return err
	}
	f.FrameID = d.frameID
	f.Timestamp = ts
	f.Incomplete = false
	f.Chunks = nil
	d.frameID++
	if chunkMode {
		f.Chunks = map[string]float64{}
		for sel, name := range chunkSelectors {
			if !chunks[sel] {
				continue
			}
			switch name {
			case camera.ChunkExposureTime:
				f.Chunks[name] = exposure
			case camera.ChunkGain:
				f.Chunks[name] = gain
			case camera.ChunkTimestamp:
				f.Chunks[name] = float64(ts)
			case camera.ChunkFrameID:
				f.Chunks[name] = float64(f.FrameID)
			case camera.ChunkCRC:
				f.Chunks[name] = float64(camera.PayloadCRC(f.Data))
			}
		}
	}

	d.mu.Lock()
	if cfg.handling == "NewestOnly" {
		d.lost += int64(len(d.queued))
		d.free = append(d.free, d.queued...)
		d.queued = d.queued[:0]
	}
	d.queued = append(d.queued, f)
	d.delivered++
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return nil
}

// fill renders the scene into f, reusing the last rendering when nothing
// that affects the image changed
func (d *Device) fill(f *camera.Frame, cfg streamConfig, level float64) error {
	key := templateKey{width: cfg.width, height: cfg.height, format: cfg.format, level: level}
	if d.template == nil || key != d.tmplKey {
		buf, err := render(d.spec.Scene, d.spec.Calibration, cfg.format, cfg.width, cfg.height, level)
		if err != nil {
			return err
		}
		d.template, d.tmplKey = buf, key
	}
	f.Width, f.Height, f.Format = cfg.width, cfg.height, cfg.format
	f.Data = f.Data[:len(d.template)]
	copy(f.Data, d.template)
	return nil
}

// GetImage waits up to timeout for the next frame
func (d *Device) GetImage(timeout time.Duration) (*camera.Frame, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		d.mu.Lock()
		if !d.streaming {
			d.mu.Unlock()
			return nil, camera.ErrNotStreaming
		}
		if len(d.queued) > 0 {
			f := d.queued[0]
			d.queued = d.queued[1:]
			d.out[f] = true
			d.mu.Unlock()
			return f, nil
		}
		done := d.done
		d.mu.Unlock()
		select {
		case <-d.notify:
		case <-done:
			// acquisition finished; drain what is left, then time out
			d.mu.Lock()
			empty := len(d.queued) == 0
			d.mu.Unlock()
			if empty {
				<-deadline.C
				return nil, camera.ErrTimeout
			}
		case <-deadline.C:
			return nil, camera.ErrTimeout
		}
	}
}

// RequeueBuffer returns f to the free pool
func (d *Device) RequeueBuffer(f *camera.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.out[f] {
		return fmt.Errorf("buffer %p was not delivered by this stream", f)
	}
	delete(d.out, f)
	d.free = append(d.free, f)
	return nil
}

// StopStream ends acquisition and releases the buffers
func (d *Device) StopStream() error {
	d.mu.Lock()
	if !d.streaming {
		d.mu.Unlock()
		return camera.ErrNotStreaming
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()
	cancel()
	<-done

	d.mu.Lock()
	d.streaming = false
	d.free, d.queued, d.out = nil, nil, nil
	d.mu.Unlock()
	d.nodes.Unlock()
	d.stream.Unlock()
	return nil
}

// Streaming reports if a stream is active
func (d *Device) Streaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}
