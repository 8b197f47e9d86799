package handlers

import (
	"net/http"

	"github.com/onnwee/metro-map/backend/internal/city"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatsSource is the part of the city the status endpoint reads.
type StatsSource interface {
	Stats() city.Stats
}

// Status reports the city summary alongside liveness.
func Status(src StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"city":   src.Stats(),
		})
	}
}
