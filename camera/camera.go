/*
Package camera describes a standard set of interfaces for streaming polarized
cameras, and the frames they deliver.

A System discovers devices.  A Device exposes two node maps (the device's own
features and the stream's) and a buffer queue: StartStream allocates buffers,
GetImage takes a filled one off the queue, RequeueBuffer gives it back.
*/
package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/polar"
	"github.com/snksoft/crc"
)

var (
	// ErrTimeout is returned by GetImage when no frame arrives in time
	ErrTimeout = errors.New("timed out waiting for an image")

	// ErrNotStreaming is returned by operations that need an active stream
	ErrNotStreaming = errors.New("device is not streaming")

	// ErrStreaming is returned by StartStream on a device which is already streaming
	ErrStreaming = errors.New("device is already streaming")

	// ErrChunkNotFound is returned by Frame.Chunk for a chunk that was not delivered
	ErrChunkNotFound = errors.New("chunk not present in frame")

	// ErrDeviceNotFound is returned by CreateDevice for an unknown device
	ErrDeviceNotFound = errors.New("device not found")
)

// DeviceInfo identifies a device found by a System
type DeviceInfo struct {
	Vendor       string `json:"vendor"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
	IPAddress    string `json:"ipAddress"`
	MACAddress   string `json:"macAddress"`
}

// String satisfies fmt.Stringer
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Model, d.SerialNumber, d.IPAddress)
}

// System enumerates and opens devices.  It is an explicit value; there is no
// process-wide system.
type System interface {
	// UpdateDevices refreshes the device list, waiting at most timeout for
	// devices to answer.  It reports whether the list changed.
	UpdateDevices(timeout time.Duration) (bool, error)

	// Devices returns the devices found by the last UpdateDevices
	Devices() []DeviceInfo

	// CreateDevice opens a device
	CreateDevice(DeviceInfo) (Device, error)

	// DestroyDevice stops any stream and releases the device
	DestroyDevice(Device) error

	// Close releases all devices
	Close() error
}

// Device is an open camera
type Device interface {
	// Info describes the device
	Info() DeviceInfo

	// NodeMap holds the device's features, such as PixelFormat and ExposureTime
	NodeMap() *nodemap.NodeMap

	// StreamNodeMap holds the stream's features, such as StreamBufferHandlingMode
	StreamNodeMap() *nodemap.NodeMap

	// StartStream begins acquisition into nbuf buffers.  Zero picks a default.
	StartStream(nbuf int) error

	// GetImage blocks until a frame is available or timeout passes, in which
	// case the error is ErrTimeout
	GetImage(timeout time.Duration) (*Frame, error)

	// RequeueBuffer returns a frame's buffer to the device.  The frame must not
	// be used afterwards.
	RequeueBuffer(*Frame) error

	// StopStream ends acquisition.  Frames not yet requeued are invalidated.
	StopStream() error
}

// Chunk names delivered by devices when chunk mode is active
const (
	ChunkExposureTime = "ChunkExposureTime"
	ChunkGain         = "ChunkGain"
	ChunkTimestamp    = "ChunkTimestamp"
	ChunkFrameID      = "ChunkFrameID"
	ChunkCRC          = "ChunkCRC"
)

// Frame is one image delivered by a device
type Frame struct {
	Width  int
	Height int
	Format polar.PixelFormat

	// Data is the image payload, without chunk data
	Data []byte

	// FrameID counts frames since the stream started
	FrameID uint64

	// Timestamp is the device time of exposure start in nanoseconds
	Timestamp uint64

	// Incomplete is true if the device could not fill the whole payload
	Incomplete bool

	// Chunks holds chunk values by name, nil if chunk mode was off
	Chunks map[string]float64
}

// Chunk returns the value of a chunk by name
func (f *Frame) Chunk(name string) (float64, error) {
	v, ok := f.Chunks[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrChunkNotFound, name)
	}
	return v, nil
}

// Polar is a view of the frame for polarization processing.  It shares Data.
func (f *Frame) Polar() polar.Frame {
	return polar.Frame{Width: f.Width, Height: f.Height, Format: f.Format, Data: f.Data}
}

var crcTable = crc.NewTable(crc.CRC32)

// PayloadCRC is the CRC-32 of data, as carried in the CRC chunk
func PayloadCRC(data []byte) uint32 {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, data)
	return crcTable.CRC32(c)
}

// VerifyCRC checks the payload against the CRC chunk.  A frame without a CRC
// chunk returns ErrChunkNotFound.
func (f *Frame) VerifyCRC() (bool, error) {
	want, err := f.Chunk(ChunkCRC)
	if err != nil {
		return false, err
	}
	return uint32(want) == PayloadCRC(f.Data), nil
}
