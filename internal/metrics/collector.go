package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/onnwee/metro-map/backend/internal/logger"
)

// Sample is one reading of the city state.
type Sample struct {
	Polygons          int
	ActiveSimulations int
	MeanAlpha         float64
	NodesByType       map[string]int
}

// Source is sampled by the Collector. The city implements it.
type Source interface {
	MetricsSample(ctx context.Context) (Sample, error)
}

// ErrNoSource is returned by Collect when the collector has nothing to sample.
var ErrNoSource = errors.New("metrics: no source")

// Collector periodically samples the city and updates Prometheus gauges
type Collector struct {
	source   Source
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source Source, interval time.Duration) *Collector {
	return &Collector{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	_ = c.Collect(ctx)

	for {
		select {
		case <-ticker.C:
			_ = c.Collect(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

// Collect takes one sample and publishes it.
func (c *Collector) Collect(ctx context.Context) error {
	if c.source == nil {
		return ErrNoSource
	}
	s, err := c.source.MetricsSample(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Error sampling city metrics", "error", err)
		MetricsCollectionErrors.WithLabelValues("city").Inc()
		// Signal stale data
		CityPolygonsTotal.Set(-1)
		SimulationsActive.Set(-1)
		return err
	}

	CityPolygonsTotal.Set(float64(s.Polygons))
	SimulationsActive.Set(float64(s.ActiveSimulations))
	SimulationAlphaMean.Set(s.MeanAlpha)
	CityNodesTotal.Reset()
	for t, n := range s.NodesByType {
		CityNodesTotal.WithLabelValues(t).Set(float64(n))
	}
	return nil
}
