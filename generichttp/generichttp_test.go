package generichttp_test

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.com/polarlab/polarcam/generichttp"
)

func TestHumanPayloadJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	generichttp.HumanPayload{T: types.Float64, Float: 2.5}.EncodeAndRespond(w, r)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json got %s", ct)
	}
	f := generichttp.FloatT{}
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 2.5 {
		t.Errorf("expected 2.5 got %f", f.F64)
	}
}

func TestHumanPayloadText(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept", "text/plain")
	w := httptest.NewRecorder()
	generichttp.HumanPayload{T: types.String, String: "PolarizeMono8"}.EncodeAndRespond(w, r)
	if body := w.Body.String(); body != "PolarizeMono8" {
		t.Errorf("expected plain text PolarizeMono8 got %q", body)
	}
}

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"camera":   "/camera",
		"/camera/": "/camera",
		" cam/a/ ": "/cam/a",
	}
	for in, expected := range cases {
		if got := generichttp.SubMuxSanitize(in); got != expected {
			t.Errorf("SubMuxSanitize(%q): expected %q got %q", in, expected, got)
		}
	}
}

type gainer struct{ gain float64 }

func (g *gainer) Get() (float64, error) { return g.gain, nil }
func (g *gainer) Set(f float64) error {
	if f < 0 {
		return errors.New("negative gain")
	}
	g.gain = f
	return nil
}

func TestBindAndHelpers(t *testing.T) {
	g := &gainer{}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/gain"}:  generichttp.GetFloat(g.Get),
		{Method: http.MethodPost, Path: "/gain"}: generichttp.SetFloat(g.Set),
	}
	r := chi.NewRouter()
	rt.Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/gain", "application/json", strings.NewReader(`{"f64": 6}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || g.gain != 6 {
		t.Errorf("expected gain set to 6 with 200, got %d and %f", resp.StatusCode, g.gain)
	}

	resp, err = http.Post(srv.URL+"/gain", "application/json", strings.NewReader(`{"f64": -1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 for a rejected value, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/gain", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/endpoints")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var eps []string
	if err := json.NewDecoder(resp.Body).Decode(&eps); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"GET /gain", "POST /gain"}, eps); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}
