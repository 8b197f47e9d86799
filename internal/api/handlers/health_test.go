package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/metro-map/backend/internal/city"
)

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", out["status"])
	}
}

type fixedStats city.Stats

func (f fixedStats) Stats() city.Stats { return city.Stats(f) }

func TestStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	Status(fixedStats{Polygons: 30, Nodes: 120, Version: 9})(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var out struct {
		Status string     `json:"status"`
		City   city.Stats `json:"city"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ok" || out.City.Polygons != 30 || out.City.Version != 9 {
		t.Errorf("unexpected status body %+v", out)
	}
}
