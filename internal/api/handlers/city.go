package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/onnwee/metro-map/backend/internal/apierr"
	"github.com/onnwee/metro-map/backend/internal/cache"
	"github.com/onnwee/metro-map/backend/internal/city"
	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/middleware"
	"github.com/onnwee/metro-map/backend/internal/terrain"
)

// CityVersionHeader carries the city version a response was rendered from.
const CityVersionHeader = "X-City-Version"

// CityService is the control surface of a city the HTTP API drives.
// *city.City implements it.
type CityService interface {
	ID() uuid.UUID
	Version() uint64
	Options() city.Options
	Snapshot() city.Snapshot
	Stats() city.Stats
	Polygon(index int) (city.PolygonView, error)

	Regenerate(ctx context.Context, n int) error
	RegenerateFrom(ctx context.Context, sites []geometry.Point) error
	Retype(ctx context.Context, index int, t city.DistrictType) error

	CreateSimulation(index int) error
	Start(index int) error
	Stop(index int) error
	Restart(index int) error
	SetAlphaTarget(index int, v float64) error
	StartAll()
	StopAll()
	RestartAll()

	DragStart(x, y float64) (city.DragResult, error)
	DragMove(x, y float64) (city.DragResult, error)
	DragEnd() (city.DragResult, error)
	PinNode(polygon, node int, x, y float64) (city.NodeView, error)
	ReleaseNode(polygon, node int) (city.NodeView, error)

	Layer(layer terrain.Layer) (city.LayerView, error)
	Brush(ctx context.Context, layer terrain.Layer, b terrain.Brush) (city.BrushResult, error)
	SetWaterline(v float64) error
}

// CityHandler serves the city snapshot and control endpoints.
type CityHandler struct {
	city  CityService
	views *cache.Views
}

// NewCityHandler creates a handler; views may be nil to disable caching.
func NewCityHandler(c CityService, views *cache.Views) *CityHandler {
	return &CityHandler{city: c, views: views}
}

func (h *CityHandler) render(view string, fn func() (any, uint64)) ([]byte, uint64, error) {
	render := func() ([]byte, uint64, error) {
		v, version := fn()
		body, err := json.Marshal(v)
		return body, version, err
	}
	if h.views == nil {
		return render()
	}
	return h.views.Get(view, h.city.Version(), render)
}

func (h *CityHandler) writeRendered(w http.ResponseWriter, r *http.Request, body []byte, version uint64) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(CityVersionHeader, strconv.FormatUint(version, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.WarnContext(r.Context(), "Failed to write city view", "error", err)
	}
}

// GetCity returns the full snapshot.
// GET /api/city
func (h *CityHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	body, version, err := h.render("snapshot", func() (any, uint64) {
		s := h.city.Snapshot()
		return s, s.Version
	})
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writeRendered(w, r, body, version)
}

// GetStats returns the city summary.
// GET /api/city/stats
func (h *CityHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	body, version, err := h.render("stats", func() (any, uint64) {
		s := h.city.Stats()
		return s, s.Version
	})
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writeRendered(w, r, body, version)
}

type regenerateRequest struct {
	Sites  int              `json:"sites"`
	Points []geometry.Point `json:"points"`
}

// Regenerate rebuilds the city from a site count or explicit sites.
// POST /api/city/regenerate
func (h *CityHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if aerr := middleware.DecodeJSON(r, &req, true); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	var err error
	switch {
	case len(req.Points) > 0:
		err = h.city.RegenerateFrom(r.Context(), req.Points)
	case req.Sites != 0:
		err = h.city.Regenerate(r.Context(), req.Sites)
	default:
		err = h.city.Regenerate(r.Context(), h.city.Options().Sites)
	}
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.city.Stats())
}

// GetPolygon returns one polygon with its buildings.
// GET /api/polygons/{index}
func (h *CityHandler) GetPolygon(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	h.writePolygon(w, r, index)
}

func (h *CityHandler) writePolygon(w http.ResponseWriter, r *http.Request, index int) {
	p, err := h.city.Polygon(index)
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	w.Header().Set(CityVersionHeader, strconv.FormatUint(h.city.Version(), 10))
	writeJSON(w, http.StatusOK, p)
}

type typeRequest struct {
	Type string `json:"type"`
}

// SetPolygonType retypes a polygon and regenerates its buildings.
// PUT /api/polygons/{index}/type
func (h *CityHandler) SetPolygonType(w http.ResponseWriter, r *http.Request) {
	index, aerr := pathInt(r, "index")
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	var req typeRequest
	if aerr := middleware.DecodeJSON(r, &req, false); aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	if req.Type == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("type"))
		return
	}
	t, err := city.ParseDistrictType(middleware.SanitizeName(req.Type, 16))
	if err == nil {
		err = h.city.Retype(r.Context(), index, t)
	}
	if err != nil {
		apierr.WriteDomainError(w, r, err)
		return
	}
	h.writePolygon(w, r, index)
}
