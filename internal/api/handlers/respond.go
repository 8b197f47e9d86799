package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// pathInt reads an integer mux variable.
func pathInt(r *http.Request, name string) (int, *apierr.Error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.ValidationInvalidValue(name, name+" must be an integer")
	}
	return v, nil
}

// finite rejects NaN and infinities in request coordinates.
func finite(field string, vs ...float64) *apierr.Error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apierr.ValidationInvalidValue(field, field+" must be finite")
		}
	}
	return nil
}
