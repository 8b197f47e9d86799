package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/metro-map/backend/internal/api/handlers"
	"github.com/onnwee/metro-map/backend/internal/cache"
	"github.com/onnwee/metro-map/backend/internal/middleware"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	City  handlers.CityService
	Views *cache.Views // nil disables view caching
	Hub   *handlers.Hub
	// Limiter is optional; exempt paths are registered by the caller.
	Limiter     *middleware.RateLimiter
	CORS        *middleware.CORSConfig
	EnablePprof bool
}

// NewRouter registers every route. Per-route middleware (instrumentation,
// ETags) is attached here; the request-wide chain lives in NewHandler.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Instrument)

	h := handlers.NewCityHandler(d.City, d.Views)
	etag := func(fn http.HandlerFunc) http.Handler { return middleware.ETag(fn) }

	// Health and metrics
	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/api/status", handlers.Status(d.City)).Methods(http.MethodGet)

	// City
	r.Handle("/api/city", etag(h.GetCity)).Methods(http.MethodGet)
	r.Handle("/api/city/stats", etag(h.GetStats)).Methods(http.MethodGet)
	r.HandleFunc("/api/city/regenerate", h.Regenerate).Methods(http.MethodPost)

	// Polygons and their simulations
	r.Handle("/api/polygons/{index:-?[0-9]+}", etag(h.GetPolygon)).Methods(http.MethodGet)
	r.HandleFunc("/api/polygons/{index:-?[0-9]+}/type", h.SetPolygonType).Methods(http.MethodPut)
	r.HandleFunc("/api/polygons/{index:-?[0-9]+}/simulation/alpha-target", h.SetAlphaTarget).Methods(http.MethodPut)
	r.HandleFunc("/api/polygons/{index:-?[0-9]+}/simulation/{action:create|start|stop|restart}", h.ControlPolygon).Methods(http.MethodPost)
	r.HandleFunc("/api/polygons/{index:-?[0-9]+}/nodes/{node:[0-9]+}/pin", h.PinNode).Methods(http.MethodPut)
	r.HandleFunc("/api/polygons/{index:-?[0-9]+}/nodes/{node:[0-9]+}/pin", h.ReleaseNode).Methods(http.MethodDelete)
	r.HandleFunc("/api/simulations/{action:start|stop|restart}", h.ControlAll).Methods(http.MethodPost)

	// Dragging
	r.HandleFunc("/api/drag/{phase:start|move|end}", h.Drag).Methods(http.MethodPost)

	// Data layers; the waterline route must win over {layer}.
	r.HandleFunc("/api/layers/waterline", h.SetWaterline).Methods(http.MethodPut)
	r.Handle("/api/layers/{layer}", etag(h.GetLayer)).Methods(http.MethodGet)
	r.HandleFunc("/api/layers/{layer}/brush", h.Brush).Methods(http.MethodPost)

	// Live snapshots
	if d.Hub != nil {
		r.Handle("/api/ws", d.Hub).Methods(http.MethodGet)
	}

	if d.EnablePprof {
		p := r.PathPrefix("/debug/pprof").Subrouter()
		p.HandleFunc("/cmdline", pprof.Cmdline)
		p.HandleFunc("/profile", pprof.Profile)
		p.HandleFunc("/symbol", pprof.Symbol)
		p.HandleFunc("/trace", pprof.Trace)
		p.PathPrefix("/").HandlerFunc(pprof.Index)
	}

	return r
}

// NewHandler wraps the router in the request-wide middleware chain.
// The outermost middleware runs first.
func NewHandler(d Deps) http.Handler {
	var h http.Handler = NewRouter(d)
	h = middleware.ValidateRequestBody(h)
	h = middleware.Compress(h)
	if d.Limiter != nil {
		h = d.Limiter.Limit(h)
	}
	h = middleware.CORS(d.CORS)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h
}
