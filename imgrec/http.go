package imgrec

import (
	"encoding/json"
	"go/types"
	"net/http"
	"path/filepath"

	"github.com/polarlab/polarcam/generichttp"
	"github.com/polarlab/polarcam/server"
)

// HTTPWrapper is an HTTP wrapper around a Writer that allows the pattern and
// counter to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing
// it to be injected into another HTTPer
type HTTPWrapper struct {
	*Writer
}

// NewHTTPWrapper returns an HTTP wrapper around a writer
func NewHTTPWrapper(w *Writer) HTTPWrapper {
	return HTTPWrapper{w}
}

// SetPattern updates the file name pattern of the writer
func (h HTTPWrapper) SetPattern(w http.ResponseWriter, r *http.Request) {
	str := generichttp.StrT{}
	err := json.NewDecoder(r.Body).Decode(&str)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if str.Str == "" {
		http.Error(w, "pattern must not be empty", http.StatusBadRequest)
		return
	}
	if _, err := encoderFor(filepath.Ext(str.Str), DefaultJpegQuality); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Writer.SetFileNamePattern(str.Str)
	w.WriteHeader(http.StatusOK)
}

// GetPattern sends the writer's pattern back
func (h HTTPWrapper) GetPattern(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.String, String: h.Writer.Pattern()}
	hp.EncodeAndRespond(w, r)
}

// GetEnabled returns whether the writer is enabled
func (h HTTPWrapper) GetEnabled(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.Bool, Bool: h.Writer.IsEnabled()}
	hp.EncodeAndRespond(w, r)
}

// SetEnabled enables or disables the writer
func (h HTTPWrapper) SetEnabled(w http.ResponseWriter, r *http.Request) {
	bT := generichttp.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&bT)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Writer.Enable(bT.Bool)
	w.WriteHeader(http.StatusOK)
}

// GetCount sends back the count the next save will use
func (h HTTPWrapper) GetCount(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.Int, Int: int(h.Writer.Count())}
	hp.EncodeAndRespond(w, r)
}

// SetCount sets the count the next save will use
func (h HTTPWrapper) SetCount(w http.ResponseWriter, r *http.Request) {
	iT := generichttp.IntT{}
	err := json.NewDecoder(r.Body).Decode(&iT)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if iT.Int < 0 {
		http.Error(w, "count must be non-negative", http.StatusBadRequest)
		return
	}
	h.Writer.SetCount(uint64(iT.Int))
	w.WriteHeader(http.StatusOK)
}

// GetNext sends back the file name the next save will use
func (h HTTPWrapper) GetNext(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.String, String: h.Writer.PeekFileName()}
	hp.EncodeAndRespond(w, r)
}

// GetLast sends the last saved file as an attachment
func (h HTTPWrapper) GetLast(w http.ResponseWriter, r *http.Request) {
	last := h.Writer.LastFileName()
	if last == "" {
		http.Error(w, "no image has been saved", http.StatusNotFound)
		return
	}
	server.ReplyWithFile(w, r, filepath.Base(last), filepath.Dir(last))
}

// Inject adds the /autowrite routes to the HTTPer which manipulate this
// wrapper's writer
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/pattern"}] = h.SetPattern
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/pattern"}] = h.GetPattern
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = h.SetEnabled
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = h.GetEnabled
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/count"}] = h.SetCount
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/count"}] = h.GetCount
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/next"}] = h.GetNext
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/last"}] = h.GetLast
}
