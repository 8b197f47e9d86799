package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/middleware"
)

type simulationStatus struct {
	Action     string `json:"action"`
	Simulating bool   `json:"simulating"`
	Active     int    `json:"active_simulations"`
}

// ControlAll starts, stops or restarts every simulation of the city.
// POST /api/simulations/{action}
func (h *CityHandler) ControlAll(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "start":
		h.city.StartAll()
	case "stop":
		h.city.StopAll()
	case "restart":
		h.city.RestartAll()
	default:
		apierr.WriteErrorWithContext(w, r,
			apierr.ValidationInvalidValue("action", "action must be start, stop or restart"))
		return
	}
	stats := h.city.Stats()
	writeJSON(w, http.StatusOK, simulationStatus{
		Action:     action,
		Simulating: stats.Simulating,
		Active:     stats.ActiveSimulations,
	})
}

// ControlPolygon drives the simulation of one polygon.
// POST /api/polygons/{index}/simulation/{action}
func (h *CityHandler) ControlPolygon(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	var err error
	switch mux.Vars(r)["action"] {
	case "create":
		err = h.city.CreateSimulation(index)
	case "start":
		err = h.city.Start(index)
	case "stop":
		err = h.city.Stop(index)
	case "restart":
		err = h.city.Restart(index)
	default:
		apierr.WriteErrorWithContext(w, r,
			apierr.ValidationInvalidValue("action", "action must be create, start, stop or restart"))
		return
	}
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writePolygon(w, r, index)
}

type alphaTargetRequest struct {
	Value *float64 `json:"value"`
}

// SetAlphaTarget sets the alpha a polygon simulation relaxes toward.
// PUT /api/polygons/{index}/simulation/alpha-target
func (h *CityHandler) SetAlphaTarget(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	var req alphaTargetRequest
	if aerr := middleware.DecodeJSON(r, &req, false); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	if req.Value == nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("value"))
		return
	}
	if err := h.city.SetAlphaTarget(index, *req.Value); err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writePolygon(w, r, index)
}
