package nodemap_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/polarlab/polarcam/camera/nodemap"
)

func testMap() *nodemap.NodeMap {
	return nodemap.New(
		nodemap.Node{Name: "Width", Kind: nodemap.Int, Value: int64(64), Min: 2, Max: 4096, Streaming: true},
		nodemap.Node{Name: "ExposureTime", Kind: nodemap.Float, Value: 1000., Min: 30, Max: 1e6, Unit: "us"},
		nodemap.Node{Name: "ChunkModeActive", Kind: nodemap.Bool, Value: false},
		nodemap.Node{Name: "PixelFormat", Kind: nodemap.Enum, Value: "PolarizeMono8",
			Entries: []string{"PolarizeMono8", "PolarizeMono16"}, Streaming: true},
		nodemap.Node{Name: "DeviceModelName", Kind: nodemap.String, Value: "SIM", ReadOnly: true},
		nodemap.Node{Name: "TriggerSoftware", Kind: nodemap.Command},
	)
}

func TestTypedRoundTrip(t *testing.T) {
	nm := testMap()
	if err := nm.SetInt("Width", 128); err != nil {
		t.Fatal(err)
	}
	if i, _ := nm.GetInt("Width"); i != 128 {
		t.Errorf("expected Width 128 got %d", i)
	}
	if err := nm.SetFloat("ExposureTime", 2500); err != nil {
		t.Fatal(err)
	}
	if f, _ := nm.GetFloat("ExposureTime"); f != 2500 {
		t.Errorf("expected ExposureTime 2500 got %f", f)
	}
	if err := nm.SetBool("ChunkModeActive", true); err != nil {
		t.Fatal(err)
	}
	if b, _ := nm.GetBool("ChunkModeActive"); !b {
		t.Errorf("expected ChunkModeActive true")
	}
	if err := nm.SetString("PixelFormat", "PolarizeMono16"); err != nil {
		t.Fatal(err)
	}
	if s, _ := nm.GetString("PixelFormat"); s != "PolarizeMono16" {
		t.Errorf("expected PolarizeMono16 got %s", s)
	}
}

func TestFeatureNotFound(t *testing.T) {
	nm := testMap()
	_, err := nm.GetInt("Height")
	var nf nodemap.ErrFeatureNotFound
	if !errors.As(err, &nf) || nf.Feature != "Height" {
		t.Errorf("expected ErrFeatureNotFound{Height}, got %v", err)
	}
}

func TestWrongKind(t *testing.T) {
	nm := testMap()
	_, err := nm.GetFloat("Width")
	var wk nodemap.ErrWrongKind
	if !errors.As(err, &wk) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
}

func TestLimitsEnforced(t *testing.T) {
	nm := testMap()
	if err := nm.SetFloat("ExposureTime", 1); !errors.Is(err, nodemap.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	lo, hi, err := nm.Limits("ExposureTime")
	if err != nil || lo != 30 || hi != 1e6 {
		t.Errorf("expected limits [30, 1e6], got [%f, %f] %v", lo, hi, err)
	}
}

func TestEnumRejectsUnknownEntry(t *testing.T) {
	nm := testMap()
	if err := nm.SetString("PixelFormat", "Mono8"); !errors.Is(err, nodemap.ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestReadOnly(t *testing.T) {
	nm := testMap()
	if err := nm.SetString("DeviceModelName", "other"); !errors.Is(err, nodemap.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestLockedWhileStreaming(t *testing.T) {
	nm := testMap()
	nm.Lock()
	if err := nm.SetInt("Width", 32); !errors.Is(err, nodemap.ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	if err := nm.SetFloat("ExposureTime", 500); err != nil {
		t.Errorf("expected non-streaming feature to stay writable, got %v", err)
	}
	nm.Unlock()
	if err := nm.SetInt("Width", 32); err != nil {
		t.Errorf("expected Width writable after unlock, got %v", err)
	}
}

func TestHooks(t *testing.T) {
	var executed, seen int
	nm := nodemap.New(
		nodemap.Node{Name: "Go", Kind: nodemap.Command, Exec: func() error { executed++; return nil }},
		nodemap.Node{Name: "Gain", Kind: nodemap.Float, Value: 0.,
			Setter: func(v interface{}) error {
				if v.(float64) > 10 {
					return errors.New("too much gain")
				}
				seen++
				return nil
			}},
		nodemap.Node{Name: "Twice", Kind: nodemap.Float, ReadOnly: true,
			Getter: func() interface{} { return float64(2 * seen) }},
	)
	if err := nm.Execute("Go"); err != nil || executed != 1 {
		t.Errorf("expected command to run once, ran %d times, %v", executed, err)
	}
	if err := nm.SetFloat("Gain", 20); err == nil {
		t.Errorf("expected setter error")
	}
	if g, _ := nm.GetFloat("Gain"); g != 0 {
		t.Errorf("expected rejected value not stored, got %f", g)
	}
	if err := nm.SetFloat("Gain", 5); err != nil {
		t.Fatal(err)
	}
	if v, _ := nm.GetFloat("Twice"); v != 2 {
		t.Errorf("expected getter to compute 2, got %f", v)
	}
}

func TestConfigureAggregatesErrors(t *testing.T) {
	nm := testMap()
	err := nm.Configure(map[string]interface{}{
		"Width":           256,
		"ExposureTime":    5000,
		"ChunkModeActive": true,
		"PixelFormat":     "Nope",
		"Missing":         1,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, nodemap.ErrInvalidEntry) {
		t.Errorf("expected joined error to contain ErrInvalidEntry, got %v", err)
	}
	var nf nodemap.ErrFeatureNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected joined error to contain ErrFeatureNotFound, got %v", err)
	}
	if w, _ := nm.GetInt("Width"); w != 256 {
		t.Errorf("expected valid settings applied despite errors, Width=%d", w)
	}
	if e, _ := nm.GetFloat("ExposureTime"); e != 5000 {
		t.Errorf("expected int converted to float, got %f", e)
	}
}

func TestSnapshotRestore(t *testing.T) {
	nm := testMap()
	names := []string{"PixelFormat", "Width", "ExposureTime"}
	snap, err := nm.Snapshot(names...)
	if err != nil {
		t.Fatal(err)
	}
	nm.SetString("PixelFormat", "PolarizeMono16")
	nm.SetInt("Width", 8)
	nm.SetFloat("ExposureTime", 40)
	if err := nm.Restore(snap, names...); err != nil {
		t.Fatal(err)
	}
	after, _ := nm.Snapshot(names...)
	if diff := cmp.Diff(snap, after); diff != "" {
		t.Errorf("restore mismatch (-want +got):\n%s", diff)
	}
}

func TestFeatures(t *testing.T) {
	nm := testMap()
	expected := []string{"ChunkModeActive", "DeviceModelName", "ExposureTime", "PixelFormat", "TriggerSoftware", "Width"}
	if diff := cmp.Diff(expected, nm.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if k := nm.Features()["TriggerSoftware"]; k != nodemap.Command {
		t.Errorf("expected TriggerSoftware to be a command, got %s", k)
	}
}
