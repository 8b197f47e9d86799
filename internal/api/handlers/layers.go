package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/middleware"
	"github.com/onnwee/metro-map/backend/internal/terrain"
)

// GetLayer returns one data layer over every polygon.
// GET /api/layers/{layer}
func (h *CityHandler) GetLayer(w http.ResponseWriter, r *http.Request) {
	layer, err := terrain.ParseLayer(mux.Vars(r)["layer"])
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	var layerErr error
	body, version, err := h.render("layer:"+string(layer), func() (any, uint64) {
		version := h.city.Version()
		v, err := h.city.Layer(layer)
		layerErr = err
		return v, version
	})
	if err == nil {
		err = layerErr
	}
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writeRendered(w, r, body, version)
}

// Brush paints one stroke on an editable layer.
// POST /api/layers/{layer}/brush
func (h *CityHandler) Brush(w http.ResponseWriter, r *http.Request) {
	layer := terrain.Layer(mux.Vars(r)["layer"])
	var b terrain.Brush
	if aerr := middleware.DecodeJSON(r, &b, false); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	if aerr := finite("brush", b.X, b.Y, b.Radius, b.Increment); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	res, err := h.city.Brush(r.Context(), layer, b)
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type waterlineRequest struct {
	Value *float64 `json:"value"`
}

// SetWaterline moves the elevation below which sites count as water.
// PUT /api/layers/waterline
func (h *CityHandler) SetWaterline(w http.ResponseWriter, r *http.Request) {
	var req waterlineRequest
	if aerr := middleware.DecodeJSON(r, &req, false); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	if req.Value == nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("value"))
		return
	}
	if err := h.city.SetWaterline(*req.Value); err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"waterline": *req.Value})
}
