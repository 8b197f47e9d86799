package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/onnwee/metro-map/backend/internal/api"
	"github.com/onnwee/metro-map/backend/internal/api/handlers"
	"github.com/onnwee/metro-map/backend/internal/cache"
	"github.com/onnwee/metro-map/backend/internal/city"
	"github.com/onnwee/metro-map/backend/internal/config"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/metrics"
	"github.com/onnwee/metro-map/backend/internal/middleware"
	"github.com/onnwee/metro-map/backend/internal/tessellation"
)

const shutdownTimeout = 10 * time.Second

// Server owns the city and everything that drives or serves it.
type Server struct {
	City *city.City

	cfg       *config.Config
	hub       *handlers.Hub
	job       *city.Job
	collector *metrics.Collector
	lru       *cache.LRUCache
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// CityOptions translates the configuration into city options.
func CityOptions(cfg *config.Config) (city.Options, error) {
	opts := city.DefaultOptions()
	opts.Width = cfg.CanvasWidth
	opts.Height = cfg.CanvasHeight
	opts.Sites = cfg.CitySites
	opts.Seed = cfg.CitySeed
	opts.RelaxIterations = cfg.RelaxIterations
	opts.Waterline = cfg.Waterline
	opts.RandomJiggle = cfg.JiggleRandom
	opts.SimulateOnStart = cfg.SimulateOnStart
	opts.DragMode = city.DragMode(cfg.DragMode)

	provider, err := tessellation.ProviderByName(cfg.Tessellation)
	if err != nil {
		return city.Options{}, fmt.Errorf("%w: %v", city.ErrInvalidOptions, err)
	}
	opts.Provider = provider

	if cfg.DistrictProfilesFile != "" {
		profiles, err := city.LoadProfiles(cfg.DistrictProfilesFile)
		if err != nil {
			return city.Options{}, err
		}
		opts.Profiles = profiles
	}
	return opts, nil
}

// New generates the city and assembles the HTTP stack around it.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	opts, err := CityOptions(cfg)
	if err != nil {
		return nil, err
	}
	c, err := city.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("generate city: %w", err)
	}

	lru, err := cache.NewLRU(cfg.SnapshotCacheMB, 1000, cfg.SnapshotCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}

	s := &Server{
		City:      c,
		cfg:       cfg,
		hub:       handlers.NewHub(c),
		collector: metrics.NewCollector(c, cfg.MetricsInterval),
		lru:       lru,
	}
	s.job = city.NewJob(c, cfg.TickInterval, s.hub.Publish)

	if cfg.EnableRateLimit {
		s.limiter = middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		).Exempt("/health", "/metrics", "/api/ws")
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	s.handler = api.NewHandler(api.Deps{
		City:        c,
		Views:       cache.NewViews(lru, "snapshot"),
		Hub:         s.hub,
		Limiter:     s.limiter,
		CORS:        cors,
		EnablePprof: cfg.EnablePprof,
	})
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start runs the background loops until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.job.Start(ctx)
	go s.collector.Start(ctx)
}

// Run starts the background loops and serves HTTP on ln until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	ctx = logger.WithCityID(ctx, s.City.ID().String())
	log := logger.FromContext(ctx)

	loops, stopLoops := context.WithCancel(ctx)
	defer stopLoops()
	s.Start(loops)

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	stopLoops()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.lru.Close()
}
