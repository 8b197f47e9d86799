package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/metro-map/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port string
	Env  string
	// Canvas and generation
	CanvasWidth          float64
	CanvasHeight         float64
	CitySites            int
	CitySeed             int64
	RelaxIterations      int
	Waterline            float64
	DistrictProfilesFile string // optional YAML overrides of the district profiles
	Tessellation         string // voronoi or grid
	// Simulation driving
	TickInterval    time.Duration
	SimulateOnStart bool
	JiggleRandom    bool
	DragMode        string // single or follow
	// Snapshot cache
	SnapshotCacheMB  int64
	SnapshotCacheTTL time.Duration
	// Background collectors
	MetricsInterval time.Duration
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	EnablePprof          bool     // mount /debug/pprof
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string
	SentryEnvironment string
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Port:                 strings.TrimSpace(os.Getenv("PORT")),
		Env:                  strings.TrimSpace(os.Getenv("ENV")),
		CanvasWidth:          utils.GetEnvAsFloat("CANVAS_WIDTH", 960),
		CanvasHeight:         utils.GetEnvAsFloat("CANVAS_HEIGHT", 600),
		CitySites:            utils.GetEnvAsInt("CITY_SITES", 30),
		CitySeed:             int64(utils.GetEnvAsInt("CITY_SEED", 0)),
		RelaxIterations:      utils.GetEnvAsInt("RELAX_ITERATIONS", 0),
		Waterline:            utils.GetEnvAsFloat("WATERLINE", 0.2),
		DistrictProfilesFile: strings.TrimSpace(os.Getenv("DISTRICT_PROFILES_FILE")),
		Tessellation:         strings.ToLower(strings.TrimSpace(os.Getenv("TESSELLATION"))),
		TickInterval:         utils.GetEnvAsMillis("TICK_INTERVAL_MS", 16),
		SimulateOnStart:      utils.GetEnvAsBool("SIMULATE_ON_START", true),
		JiggleRandom:         utils.GetEnvAsBool("JIGGLE_RANDOM", false),
		DragMode:             strings.ToLower(strings.TrimSpace(os.Getenv("DRAG_MODE"))),
		SnapshotCacheMB:      int64(utils.GetEnvAsInt("SNAPSHOT_CACHE_MB", 64)),
		SnapshotCacheTTL:     utils.GetEnvAsMillis("SNAPSHOT_CACHE_TTL_MS", 1000),
		MetricsInterval:      utils.GetEnvAsMillis("METRICS_INTERVAL_MS", 5000),
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 30.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 60),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		EnablePprof:          utils.GetEnvAsBool("ENABLE_PPROF", false),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
	}
	if cached.Port == "" {
		cached.Port = "8000"
	}
	if cached.CitySeed == 0 {
		cached.CitySeed = time.Now().UnixNano()
	}
	if cached.TickInterval <= 0 {
		cached.TickInterval = 16 * time.Millisecond
	}
	if cached.MetricsInterval <= 0 {
		cached.MetricsInterval = 5 * time.Second
	}
	if cached.DragMode == "" {
		cached.DragMode = "follow"
	}
	if cached.Tessellation == "" {
		cached.Tessellation = "voronoi"
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if cached.Env != "" {
			cached.SentryEnvironment = cached.Env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	// Parse CORS allowed origins
	cached.CORSAllowedOrigins = utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
		[]string{"http://localhost:5173", "http://localhost:3000"}, ",")
	for i := range cached.CORSAllowedOrigins {
		cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
	}

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
