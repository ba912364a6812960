package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/polarlab/polarcam/camera"
)

// Vendor is the vendor name reported by simulated devices
const Vendor = "polarcam simulation"

// System is a simulated camera.System holding a fixed set of devices
type System struct {
	mu      sync.Mutex
	specs   []Spec
	created time.Time
	found   []camera.DeviceInfo
	open    map[string]*Device
}

// NewSystem returns a System whose devices are described by specs.  Devices
// appear in discovery once their BootDelay has passed.
func NewSystem(specs ...Spec) *System {
	return &System{
		specs:   specs,
		created: time.Now(),
		open:    map[string]*Device{},
	}
}

func infoFor(i int, s Spec) camera.DeviceInfo {
	return camera.DeviceInfo{
		Vendor:       Vendor,
		Model:        s.Model,
		SerialNumber: s.SerialNumber,
		IPAddress:    fmt.Sprintf("169.254.0.%d", 10+i),
		MACAddress:   fmt.Sprintf("1c:0f:af:00:00:%02x", 10+i),
	}
}

// UpdateDevices lists the booted devices.  If none are booted yet it waits up
// to timeout for the next one.
func (s *System) UpdateDevices(timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Duration = -1
	elapsed := time.Since(s.created)
	for _, spec := range s.specs {
		if wait := spec.BootDelay - elapsed; wait > 0 && (next < 0 || wait < next) {
			next = wait
		}
	}
	if len(s.found) == 0 && next > 0 && next <= timeout {
		time.Sleep(next)
	}
	elapsed = time.Since(s.created)
	found := make([]camera.DeviceInfo, 0, len(s.specs))
	for i, spec := range s.specs {
		if spec.BootDelay <= elapsed {
			found = append(found, infoFor(i, spec))
		}
	}
	changed := len(found) != len(s.found)
	s.found = found
	return changed, nil
}

// Devices returns the devices found by the last UpdateDevices
func (s *System) Devices() []camera.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]camera.DeviceInfo(nil), s.found...)
}

// CreateDevice opens a discovered device
func (s *System) CreateDevice(info camera.DeviceInfo) (camera.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.found {
		if f.SerialNumber != info.SerialNumber {
			continue
		}
		if _, ok := s.open[f.SerialNumber]; ok {
			return nil, fmt.Errorf("device %s is already open", f.SerialNumber)
		}
		d := NewDevice(s.specs[s.index(f.SerialNumber, i)], f)
		s.open[f.SerialNumber] = d
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", camera.ErrDeviceNotFound, info.SerialNumber)
}

// index finds the spec of a serial number, falling back to i
func (s *System) index(serial string, i int) int {
	for j, spec := range s.specs {
		if spec.SerialNumber == serial {
			return j
		}
	}
	return i
}

// DestroyDevice stops the device's stream, if any, and closes it
func (s *System) DestroyDevice(dev camera.Device) error {
	d, ok := dev.(*Device)
	if !ok {
		return fmt.Errorf("device %v does not belong to this system", dev.Info())
	}
	if d.Streaming() {
		if err := d.StopStream(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.open, d.info.SerialNumber)
	s.mu.Unlock()
	return nil
}

// Close destroys every open device
func (s *System) Close() error {
	s.mu.Lock()
	devs := make([]*Device, 0, len(s.open))
	for _, d := range s.open {
		devs = append(devs, d)
	}
	s.mu.Unlock()
	for _, d := range devs {
		if err := s.DestroyDevice(d); err != nil {
			return err
		}
	}
	return nil
}
