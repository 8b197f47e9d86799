package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation metrics
	SimulationTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_ticks_total",
			Help: "Total number of simulation ticks across all polygons",
		},
	)

	TickBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_tick_batch_duration_seconds",
			Help:    "Duration of one tick batch over every running simulation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.033, 0.1},
		},
	)

	TickBatchPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_tick_batch_panics_total",
			Help: "Total number of tick batches that panicked and were recovered",
		},
	)

	SimulationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulations_active",
			Help: "Number of simulations that are running or cooling",
		},
	)

	SimulationAlphaMean = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulation_alpha_mean",
			Help: "Mean alpha over active simulations",
		},
	)

	// City metrics
	CityPolygonsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "city_polygons_total",
			Help: "Number of polygons in the current city",
		},
	)

	CityNodesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "city_nodes_total",
			Help: "Number of building nodes by district type",
		},
		[]string{"type"},
	)

	CityRegenerations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "city_regenerations_total",
			Help: "Total number of city regenerations",
		},
	)

	CityRegenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "city_regeneration_duration_seconds",
			Help:    "Duration of city regeneration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
	)

	PolygonRetypes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polygon_retypes_total",
			Help: "Total number of polygon retypes",
		},
		[]string{"type", "source"}, // source: api, brush
	)

	LayerBrushStrokes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_brush_strokes_total",
			Help: "Total number of brush strokes applied to data layers",
		},
		[]string{"layer"},
	)

	// Snapshot cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API cache hits",
		},
		[]string{"cache_type"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API cache misses",
		},
		[]string{"cache_type"},
	)

	APICacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_size_bytes",
			Help: "Current size of API cache in bytes",
		},
		[]string{"cache_type"},
	)

	APICacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API cache",
		},
		[]string{"cache_type"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of snapshots dropped for slow WebSocket clients",
		},
	)
)
