package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/city"
	"github.com/onnwee/metro-map/backend/internal/middleware"
)

type pointerRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p pointerRequest) validate() *apierr.Error {
	if p.X == nil {
		return apierr.ValidationMissingField("x")
	}
	if p.Y == nil {
		return apierr.ValidationMissingField("y")
	}
	return finite("x,y", *p.X, *p.Y)
}

// Drag forwards pointer events to the city's drag controller.
// POST /api/drag/{phase}
func (h *CityHandler) Drag(w http.ResponseWriter, r *http.Request) {
	phase := mux.Vars(r)["phase"]

	var (
		res city.DragResult
		err error
	)
	switch phase {
	case "start", "move":
		var req pointerRequest
		if aerr := middleware.DecodeJSON(r, &req, false); aerr != nil {
			apierr.WriteErrorWithContext(w, r, aerr)
			return
		}
		if aerr := req.validate(); aerr != nil {
			apierr.WriteErrorWithContext(w, r, aerr)
			return
		}
		if phase == "start" {
			res, err = h.city.DragStart(*req.X, *req.Y)
		} else {
			res, err = h.city.DragMove(*req.X, *req.Y)
		}
	case "end":
		res, err = h.city.DragEnd()
	default:
		apierr.WriteErrorWithContext(w, r,
			apierr.ValidationInvalidValue("phase", "phase must be start, move or end"))
		return
	}
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PinNode fixes one building at a position inside its polygon.
// PUT /api/polygons/{index}/nodes/{node}/pin
func (h *CityHandler) PinNode(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	node, aerr := pathInt(r, "node")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	var req pointerRequest
	if aerr := middleware.DecodeJSON(r, &req, false); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	if aerr := req.validate(); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	view, err := h.city.PinNode(index, node, *req.X, *req.Y)
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ReleaseNode lets a pinned building move again.
// DELETE /api/polygons/{index}/nodes/{node}/pin
func (h *CityHandler) ReleaseNode(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	node, aerr := pathInt(r, "node")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	view, err := h.city.ReleaseNode(index, node)
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
