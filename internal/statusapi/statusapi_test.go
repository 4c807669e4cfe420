package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSource struct {
	snap Snapshot
	err  error
}

func (f *fakeSource) Snapshot(context.Context, int) (Snapshot, error) {
	return f.snap, f.err
}

func TestHandleAPI_ReturnsSnapshotJSON(t *testing.T) {
	src := &fakeSource{snap: Snapshot{
		Workflow:    "demo",
		Controllers: []ControllerSnapshot{{Name: "alice", State: "idle"}},
		Channel:     []MessageSnapshot{{ID: "m1", From: "system", Content: "hi"}},
	}}
	mux := http.NewServeMux()
	NewHandler(src).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/api", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Workflow != "demo" || len(got.Controllers) != 1 || got.Controllers[0].Name != "alice" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestHandleAPI_SourceErrorIs500(t *testing.T) {
	src := &fakeSource{err: errors.New("store down")}
	mux := http.NewServeMux()
	NewHandler(src).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/api", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "store down") {
		t.Fatalf("body %q does not carry the error", rec.Body.String())
	}
}

func TestHandlePage_ServesHTML(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(&fakeSource{}).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", ct)
	}
}
