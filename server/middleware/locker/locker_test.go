package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/polarlab/polarcam/generichttp"
	"github.com/polarlab/polarcam/server/middleware/locker"
)

type routes struct{ rt generichttp.RouteTable }

func (r routes) RT() generichttp.RouteTable { return r.rt }

func TestLockerRefusesWrites(t *testing.T) {
	l := locker.New()
	h := routes{generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/feature/Gain"}:  func(w http.ResponseWriter, r *http.Request) {},
		{Method: http.MethodPost, Path: "/feature/Gain"}: func(w http.ResponseWriter, r *http.Request) {},
	}}
	locker.Inject(h, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	h.rt.Bind(r)

	do := func(method, path, body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(http.MethodPost, "/feature/Gain", `{"f64": 1}`); code != http.StatusOK {
		t.Errorf("expected 200 while unlocked, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `{"bool": true}`); code != http.StatusOK || !l.Locked() {
		t.Fatalf("expected the lock to engage, got %d", code)
	}
	if code := do(http.MethodPost, "/feature/Gain", `{"f64": 1}`); code != http.StatusLocked {
		t.Errorf("expected 423 while locked, got %d", code)
	}
	if code := do(http.MethodGet, "/feature/Gain", ""); code != http.StatusOK {
		t.Errorf("expected reads to pass while locked, got %d", code)
	}
	l.ProtectReads = true
	if code := do(http.MethodGet, "/feature/Gain", ""); code != http.StatusLocked {
		t.Errorf("expected 423 for a read with ProtectReads, got %d", code)
	}
	if code := do(http.MethodGet, "/lock", ""); code != http.StatusOK {
		t.Errorf("expected the lock route to stay reachable, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `{"bool": false}`); code != http.StatusOK || l.Locked() {
		t.Errorf("expected the lock to release, got %d", code)
	}
	if code := do(http.MethodPost, "/lock", `nope`); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad body, got %d", code)
	}
}
