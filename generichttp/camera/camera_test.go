package camera_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/polarlab/polarcam/camera/sim"
	"github.com/polarlab/polarcam/generichttp"
	"github.com/polarlab/polarcam/generichttp/camera"
	"github.com/polarlab/polarcam/imgrec"
	"github.com/polarlab/polarcam/polar"
)

type fixture struct {
	srv *httptest.Server
	h   *camera.HTTPCamera
	rec *imgrec.Writer
	m   *camera.Metrics
}

func setup(t *testing.T) fixture {
	t.Helper()
	spec := sim.DefaultSpec()
	spec.SensorWidth, spec.SensorHeight = 16, 8
	sys := sim.NewSystem(spec)
	if _, err := sys.UpdateDevices(100 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	dev, err := sys.CreateDevice(sys.Devices()[0])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sys.Close() })
	dev.NodeMap().SetFloat("AcquisitionFrameRate", 120)

	m, err := camera.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	rec := imgrec.NewWriter(imgrec.Params{}, filepath.Join(t.TempDir(), "img<count>-<mode>.png"))
	h := camera.NewHTTPCamera(dev, polar.NewProcessor(polar.DefaultCalibration), rec, m)
	r := chi.NewRouter()
	h.RT().Bind(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fixture{srv: srv, h: h, rec: rec, m: m}
}

func (f fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f fixture) post(t *testing.T, path, body string) int {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestFeatureRoutes(t *testing.T) {
	f := setup(t)
	resp := f.get(t, "/feature/PixelFormat")
	var s generichttp.StrT
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "PolarizeMono8" {
		t.Errorf("expected PolarizeMono8 got %s", s.Str)
	}

	cases := []struct {
		path, body string
		code       int
	}{
		{"/feature/PixelFormat", `{"str": "PolarizeMono12p"}`, http.StatusOK},
		{"/feature/PixelFormat", `{"str": "Mono8"}`, http.StatusBadRequest},
		{"/feature/PixelFormat", `{"str": 5}`, http.StatusBadRequest},
		{"/feature/Gain", `{"f64": 100}`, http.StatusBadRequest},
		{"/feature/Gain", `{"f64": 6}`, http.StatusOK},
		{"/feature/NoSuchThing", `{"f64": 6}`, http.StatusNotFound},
		{"/feature/TriggerSoftware/execute", ``, http.StatusConflict},
		{"/stream/feature/StreamBufferHandlingMode", `{"str": "NewestOnly"}`, http.StatusOK},
	}
	for _, c := range cases {
		if code := f.post(t, c.path, c.body); code != c.code {
			t.Errorf("POST %s %s: expected %d got %d", c.path, c.body, c.code, code)
		}
	}

	var fi generichttp.FloatT
	json.NewDecoder(f.get(t, "/feature/Gain").Body).Decode(&fi)
	if fi.F64 != 6 {
		t.Errorf("expected gain 6 got %f", fi.F64)
	}

	var infos []map[string]interface{}
	if err := json.NewDecoder(f.get(t, "/stream/feature").Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, info := range infos {
		if info["name"] == "StreamBufferHandlingMode" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected StreamBufferHandlingMode in the stream feature list")
	}
}

func TestImage(t *testing.T) {
	f := setup(t)
	resp := f.get(t, "/image?mode=aolp&fmt=png")
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200 got %d: %s", resp.StatusCode, b)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png got %s", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("expected an 8x4 AoLP image, got %v", b)
	}

	resp = f.get(t, "/image?mode=Deg2x2&fmt=png&scale=0.5")
	img, err = png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("expected a half scale 8x4 preview, got %v", b)
	}

	resp = f.get(t, "/image?fmt=raw")
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) != 16*8 {
		t.Errorf("expected 128 raw Mono8 bytes, got %d", len(raw))
	}

	resp = f.get(t, "/image?fmt=fits&mode=dolp")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/fits" {
		t.Errorf("expected a fits image, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	for _, q := range []string{"mode=bogus", "fmt=gif", "scale=2", "exposureTime=abc", "timeout=xyz"} {
		if resp := f.get(t, "/image?"+q); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400 got %d", q, resp.StatusCode)
		}
	}

	if n := testutil.ToFloat64(f.m.Frames); n != 4 {
		t.Errorf("expected 4 frames acquired, got %f", n)
	}
	if n := testutil.ToFloat64(f.m.Processed.WithLabelValues("AoLP")); n != 1 {
		t.Errorf("expected 1 AoLP frame processed, got %f", n)
	}
}

func TestImageExposureTime(t *testing.T) {
	f := setup(t)
	if resp := f.get(t, "/image?fmt=raw&exposureTime=2ms"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	e, err := f.h.Dev.NodeMap().GetFloat("ExposureTime")
	if err != nil || e != 2000 {
		t.Errorf("expected ExposureTime 2000 us, got %f, %v", e, err)
	}
	auto, _ := f.h.Dev.NodeMap().GetString("ExposureAuto")
	if auto != "Off" {
		t.Errorf("expected ExposureAuto Off, got %s", auto)
	}
}

func TestImageTimeout(t *testing.T) {
	f := setup(t)
	nm := f.h.Dev.NodeMap()
	nm.SetString("TriggerMode", "On")
	nm.SetString("TriggerSource", "Software")
	if resp := f.get(t, "/image?fmt=raw&timeout=0.05"); resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("expected 504 without a trigger, got %d", resp.StatusCode)
	}
	if n := testutil.ToFloat64(f.m.Errors.WithLabelValues("acquire")); n != 1 {
		t.Errorf("expected one acquire error, got %f", n)
	}
}

func TestAutowrite(t *testing.T) {
	f := setup(t)
	if code := f.post(t, "/autowrite/enabled", `{"bool": true}`); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if resp := f.get(t, "/image?mode=hsv&fmt=jpg"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	last := f.rec.LastFileName()
	if filepath.Base(last) != "img00000000-HSV.png" {
		t.Errorf("expected img00000000-HSV.png, got %s", last)
	}
	if _, err := os.Stat(last); err != nil {
		t.Error(err)
	}
}

func TestStats(t *testing.T) {
	f := setup(t)
	resp := f.get(t, "/stats")
	var s camera.Stats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Groups != 32 || s.Format != "PolarizeMono8" {
		t.Errorf("expected 32 groups of PolarizeMono8, got %d of %s", s.Groups, s.Format)
	}
	if s.MeanDoLP <= 0 {
		t.Errorf("expected some polarization in the target scene, got %f", s.MeanDoLP)
	}
	if g := testutil.ToFloat64(f.m.MeanDoLP); g != s.MeanDoLP {
		t.Errorf("expected the gauge to hold %f, got %f", s.MeanDoLP, g)
	}
}

func TestImageScaleBelowOnePixel(t *testing.T) {
	f := setup(t)
	resp := f.get(t, "/image?mode=DoLP&fmt=png&scale=0.05")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a scale that empties the image, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct == "image/png" {
		t.Errorf("expected an error body, got Content-Type %s", ct)
	}

	resp = f.get(t, "/image?mode=DoLP&fmt=png&scale=0.25")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		t.Fatalf("expected a 200 with an image, got %d and %d bytes", resp.StatusCode, len(body))
	}
	if cl := resp.Header.Get("Content-Length"); cl != strconv.Itoa(len(body)) {
		t.Errorf("expected Content-Length %d, got %s", len(body), cl)
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("expected a 2x1 preview, got %v", b)
	}
}
