package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/metro-map/backend/internal/errorreporting"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/metrics"
	"github.com/onnwee/metro-map/backend/internal/tracing"
)

// DefaultTickInterval is roughly one animation frame.
const DefaultTickInterval = 16 * time.Millisecond

// ErrTickPanic wraps a panic recovered from a tick batch.
var ErrTickPanic = errors.New("city: tick batch panicked")

// PublishFunc receives a snapshot after every tick batch that moved
// something.
type PublishFunc func(ctx context.Context, s Snapshot)

// Job drives every simulation of a city at a fixed cadence.
type Job struct {
	city     *City
	interval time.Duration
	publish  PublishFunc
	log      *slog.Logger
}

func NewJob(c *City, interval time.Duration, publish PublishFunc) *Job {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Job{
		city:     c,
		interval: interval,
		publish:  publish,
		log:      logger.WithComponent("city_job"),
	}
}

// Start ticks until ctx is cancelled. A panicking batch is reported and the
// loop keeps going.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("Simulation job started", "interval", j.interval)

	// Run immediately on start
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.Error("Error running tick batch", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			j.log.Info("Simulation job stopped")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.Error("Error running tick batch", "error", err)
			}
		}
	}
}

// RunOnce runs one tick batch and publishes the result.
func (j *Job) RunOnce(ctx context.Context) (r TickReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "city.tick_batch")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			cause := errorreporting.CapturePanic(rec, map[string]string{
				"component": "city_job",
				"city_id":   j.city.ID().String(),
			})
			err = fmt.Errorf("%w: %v", ErrTickPanic, cause)
			span.RecordError(err)
			metrics.TickBatchPanics.Inc()
		}
	}()

	r = j.city.Step()
	span.SetAttributes(attribute.Int("ticked", r.Ticked), attribute.Int("active", r.Active))
	metrics.TickBatchDuration.Observe(r.Duration.Seconds())
	metrics.SimulationTicksTotal.Add(float64(r.Ticked))
	metrics.SimulationsActive.Set(float64(r.Active))

	if r.Ticked > 0 && j.publish != nil {
		j.publish(ctx, j.city.Snapshot())
	}
	return r, nil
}
