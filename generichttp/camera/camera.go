// Package camera provides a generic HTTP interface to a polarized camera
package camera

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"image"
	"image/draw"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/disintegration/gift"
	"github.com/go-chi/chi"

	pcam "github.com/polarlab/polarcam/camera"
	"github.com/polarlab/polarcam/camera/nodemap"
	"github.com/polarlab/polarcam/generichttp"
	"github.com/polarlab/polarcam/imgrec"
	"github.com/polarlab/polarcam/polar"
	"github.com/polarlab/polarcam/util"
)

// DefaultTimeout is how long /image and /stats wait for a frame when the
// request does not say
const DefaultTimeout = 2 * time.Second

// ModeRaw is the /image mode which returns the sensor data unprocessed
const ModeRaw = "raw"

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"fits": "image/fits",
	"raw":  "application/octet-stream",
}

// HTTPCamera wraps a device, a processor and a writer in an HTTP interface
type HTTPCamera struct {
	Dev     pcam.Device
	Proc    *polar.Processor
	Rec     *imgrec.Writer
	Metrics *Metrics

	// mu serializes acquisitions
	mu sync.Mutex

	// wmu serializes automatic writes
	wmu sync.Mutex

	RouteTable generichttp.RouteTable
}

// NewHTTPCamera returns a new HTTP wrapper.  rec and m may be nil, disabling
// automatic writes and metrics.
func NewHTTPCamera(dev pcam.Device, proc *polar.Processor, rec *imgrec.Writer, m *Metrics) *HTTPCamera {
	h := &HTTPCamera{Dev: dev, Proc: proc, Rec: rec, Metrics: m}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/info"}:                          h.GetInfo,
		{Method: http.MethodGet, Path: "/feature"}:                       h.GetFeatures,
		{Method: http.MethodGet, Path: "/feature/{feature}"}:             h.GetFeature,
		{Method: http.MethodPost, Path: "/feature/{feature}"}:            h.SetFeature,
		{Method: http.MethodGet, Path: "/feature/{feature}/info"}:        h.GetFeatureInfo,
		{Method: http.MethodPost, Path: "/feature/{feature}/execute"}:    h.ExecuteFeature,
		{Method: http.MethodGet, Path: "/image"}:                         h.GetImage,
		{Method: http.MethodGet, Path: "/stats"}:                         h.GetStats,
		{Method: http.MethodGet, Path: "/stream/feature"}:                h.GetFeatures,
		{Method: http.MethodGet, Path: "/stream/feature/{feature}"}:      h.GetFeature,
		{Method: http.MethodPost, Path: "/stream/feature/{feature}"}:     h.SetFeature,
		{Method: http.MethodGet, Path: "/stream/feature/{feature}/info"}: h.GetFeatureInfo,
	}
	h.RouteTable = rt
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT satisfies generichttp.HTTPer
func (h *HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}

// nodeMap picks the stream or device node map from the request path
func (h *HTTPCamera) nodeMap(r *http.Request) *nodemap.NodeMap {
	if strings.Contains(r.URL.Path, "/stream/") {
		return h.Dev.StreamNodeMap()
	}
	return h.Dev.NodeMap()
}

// featureStatus maps a node map error to an HTTP status code
func featureStatus(err error) int {
	var nf nodemap.ErrFeatureNotFound
	var wk nodemap.ErrWrongKind
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, nodemap.ErrLocked), errors.Is(err, pcam.ErrNotStreaming):
		return http.StatusConflict
	case errors.As(err, &wk), errors.Is(err, nodemap.ErrReadOnly),
		errors.Is(err, nodemap.ErrOutOfRange), errors.Is(err, nodemap.ErrInvalidEntry):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetInfo returns the device's identity as JSON
func (h *HTTPCamera) GetInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.Dev.Info())
}

// GetFeatures returns the description of every feature as JSON
func (h *HTTPCamera) GetFeatures(w http.ResponseWriter, r *http.Request) {
	nm := h.nodeMap(r)
	names := nm.Names()
	out := make([]nodemap.Info, 0, len(names))
	for _, name := range names {
		info, err := nm.Info(name)
		if err != nil {
			http.Error(w, err.Error(), featureStatus(err))
			return
		}
		out = append(out, info)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

// GetFeatureInfo returns the description of one feature as JSON
func (h *HTTPCamera) GetFeatureInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.nodeMap(r).Info(chi.URLParam(r, "feature"))
	if err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(info)
}

// GetFeature gets a feature, the type of which is determined by the node map
func (h *HTTPCamera) GetFeature(w http.ResponseWriter, r *http.Request) {
	nm := h.nodeMap(r)
	feature := chi.URLParam(r, "feature")
	k, err := nm.Kind(feature)
	if err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	var hp generichttp.HumanPayload
	switch k {
	case nodemap.Int:
		var i int64
		i, err = nm.GetInt(feature)
		hp = generichttp.HumanPayload{T: types.Int, Int: int(i)}
	case nodemap.Float:
		var f float64
		f, err = nm.GetFloat(feature)
		hp = generichttp.HumanPayload{T: types.Float64, Float: f}
	case nodemap.Bool:
		var b bool
		b, err = nm.GetBool(feature)
		hp = generichttp.HumanPayload{T: types.Bool, Bool: b}
	case nodemap.Enum, nodemap.String:
		var s string
		s, err = nm.GetString(feature)
		hp = generichttp.HumanPayload{T: types.String, String: s}
	default:
		err = nodemap.ErrWrongKind{Feature: feature, Kind: k, Want: nodemap.String}
	}
	if err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	hp.EncodeAndRespond(w, r)
}

// SetFeature sets a feature from the JSON payload matching its kind, e.g.
// {"f64": 1000} for ExposureTime or {"str": "PolarizeMono12p"} for PixelFormat
func (h *HTTPCamera) SetFeature(w http.ResponseWriter, r *http.Request) {
	nm := h.nodeMap(r)
	feature := chi.URLParam(r, "feature")
	k, err := nm.Kind(feature)
	if err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	switch k {
	case nodemap.Int:
		i := generichttp.IntT{}
		if err = dec.Decode(&i); err == nil {
			err = nm.SetInt(feature, int64(i.Int))
		}
	case nodemap.Float:
		f := generichttp.FloatT{}
		if err = dec.Decode(&f); err == nil {
			err = nm.SetFloat(feature, f.F64)
		}
	case nodemap.Bool:
		b := generichttp.BoolT{}
		if err = dec.Decode(&b); err == nil {
			err = nm.SetBool(feature, b.Bool)
		}
	case nodemap.Enum, nodemap.String:
		s := generichttp.StrT{}
		if err = dec.Decode(&s); err == nil {
			err = nm.SetString(feature, s.Str)
		}
	default:
		err = nodemap.ErrWrongKind{Feature: feature, Kind: k, Want: nodemap.String}
	}
	var syn *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &ute) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ExecuteFeature runs a command feature, e.g. TriggerSoftware
func (h *HTTPCamera) ExecuteFeature(w http.ResponseWriter, r *http.Request) {
	if err := h.nodeMap(r).Execute(chi.URLParam(r, "feature")); err != nil {
		http.Error(w, err.Error(), featureStatus(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// parseExposure interprets the exposureTime query parameter.  It may be any
// input to time.ParseDuration, such as "25ms" or "10us"; a bare number is
// taken as microseconds, the unit of ExposureTime.
func parseExposure(s string) (float64, error) {
	if util.AllElementsNumbers(s) {
		return strconv.ParseFloat(s, 64)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return util.DurationToMicros(d), nil
}

// grab acquires one frame and copies it out of the device's buffer.  If the
// device is not streaming a stream is started and stopped around the grab.
func (h *HTTPCamera) grab(r *http.Request) (*pcam.Frame, int, error) {
	q := r.URL.Query()
	timeout := DefaultTimeout
	if ts := q.Get("timeout"); ts != "" {
		if util.AllElementsNumbers(ts) {
			ts += "s"
		}
		d, err := time.ParseDuration(ts)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		timeout = d
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	nm := h.Dev.NodeMap()
	if texp := q.Get("exposureTime"); texp != "" {
		us, err := parseExposure(texp)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		if err := nm.SetString("ExposureAuto", "Off"); err != nil {
			return nil, featureStatus(err), err
		}
		if err := nm.SetFloat("ExposureTime", us); err != nil {
			return nil, featureStatus(err), err
		}
	}

	err := h.Dev.StartStream(0)
	switch {
	case err == nil:
		defer h.Dev.StopStream()
	case errors.Is(err, pcam.ErrStreaming):
	default:
		h.Metrics.failed("acquire")
		return nil, http.StatusInternalServerError, err
	}
	start := time.Now()
	f, err := h.Dev.GetImage(timeout)
	if err != nil {
		h.Metrics.failed("acquire")
		if errors.Is(err, pcam.ErrTimeout) {
			return nil, http.StatusGatewayTimeout, err
		}
		return nil, http.StatusInternalServerError, err
	}
	h.Metrics.acquired(time.Since(start))
	out := *f
	out.Data = append([]byte(nil), f.Data...)
	if err := h.Dev.RequeueBuffer(f); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return &out, http.StatusOK, nil
}

// ErrScaleTooSmall is returned when a scale factor shrinks an image below one pixel
var ErrScaleTooSmall = errors.New("scaled image would be empty")

// scale resizes the image described by p and data by factor s
func scale(p imgrec.Params, data []byte, s float64) (imgrec.Params, []byte, error) {
	src := imgrec.ToImage(p, data)
	g := gift.New(gift.Resize(int(float64(p.Width)*s+0.5), 0, gift.LinearResampling))
	bounds := g.Bounds(src.Bounds())
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return p, nil, fmt.Errorf("%w: %dx%d by %g", ErrScaleTooSmall, p.Width, p.Height, s)
	}
	var dst draw.Image
	switch src.(type) {
	case *image.Gray:
		dst = image.NewGray(bounds)
	case *image.Gray16:
		dst = image.NewGray16(bounds)
	default:
		dst = image.NewRGBA(bounds)
	}
	g.Draw(dst, src)
	p, data = imgrec.FromImage(dst)
	return p, data, nil
}

// GetImage takes a picture and returns it on a GET request.
//
// mode selects the output: raw (default) for the sensor data, or one of the
// polarization modes AoLP, DoLP, HSV, Deg2x2.  fmt selects the file format,
// default jpg.  scale, a factor in (0, 1], shrinks the image for previews.
// exposureTime switches to manual exposure and sets it before the grab.
//
// If the writer is enabled, the image is also saved through it.
func (h *HTTPCamera) GetImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(q.Get("fmt"))
	if format == "" {
		format = "jpg"
	}
	ctype, ok := contentTypes[format]
	if !ok {
		http.Error(w, fmt.Sprintf("format %q not understood, use one of jpg, png, bmp, tiff, fits, raw", format), http.StatusBadRequest)
		return
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = ModeRaw
	}
	var pm polar.Mode
	if !strings.EqualFold(mode, ModeRaw) {
		m, err := polar.ParseMode(mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pm = m
		mode = m.String()
	} else {
		mode = ModeRaw
	}
	factor := 1.
	if s := q.Get("scale"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 || f > 1 {
			http.Error(w, fmt.Sprintf("scale %q must be a number in (0, 1]", s), http.StatusBadRequest)
			return
		}
		factor = f
	}

	frame, code, err := h.grab(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	var (
		p    imgrec.Params
		data []byte
	)
	if mode == ModeRaw {
		p, data, err = imgrec.FrameImage(frame.Polar())
	} else {
		start := time.Now()
		var img *polar.Image
		img, err = h.Proc.Process(frame.Polar(), pm)
		if err == nil {
			h.Metrics.processed(mode, time.Since(start))
			p, data = imgrec.ParamsOf(img), img.Pix
		}
	}
	if err != nil {
		h.Metrics.failed("process")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if factor != 1 {
		p, data, err = scale(p, data, factor)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if h.Rec != nil && h.Rec.IsEnabled() {
		h.wmu.Lock()
		h.Rec.SetTimestamp(frame.Timestamp)
		h.Rec.UpdateTag("mode", mode)
		h.Rec.SetParams(p)
		_, err := h.Rec.Save(data)
		h.wmu.Unlock()
		if err != nil {
			h.Metrics.failed("write")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	buf := &bytes.Buffer{}
	if format == "fits" {
		cards := []fitsio.Card{
			{Name: "MODE", Value: mode, Comment: "output mode"},
			{Name: "PIXFMT", Value: frame.Format.String(), Comment: "sensor pixel format"},
			{Name: "FRAMEID", Value: int(frame.FrameID), Comment: "frame counter"},
		}
		if exp, err := frame.Chunk(pcam.ChunkExposureTime); err == nil {
			cards = append(cards, fitsio.Card{Name: "EXPTIME", Value: exp / 1e6, Comment: "exposure time, seconds"})
		}
		err = imgrec.WriteFits(buf, cards, p, data)
	} else {
		err = imgrec.Encode(buf, "."+format, p, data)
	}
	if err != nil {
		h.Metrics.failed("encode")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", ctype)
	hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
	hdr.Set("X-Frame-Id", strconv.FormatUint(frame.FrameID, 10))
	if format == "fits" || format == "raw" {
		hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=image.%s", format))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Stats is the payload of /stats
type Stats struct {
	polar.Summary
	FrameID uint64 `json:"frameID"`
	Format  string `json:"pixelFormat"`
}

// GetStats grabs a frame and returns its polarization summary as JSON
func (h *HTTPCamera) GetStats(w http.ResponseWriter, r *http.Request) {
	frame, code, err := h.grab(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}
	sum, err := h.Proc.Summarize(frame.Polar())
	if err != nil {
		h.Metrics.failed("process")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.Metrics.summarized(sum)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Stats{Summary: sum, FrameID: frame.FrameID, Format: frame.Format.String()})
}
