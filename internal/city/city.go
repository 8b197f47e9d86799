package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/metro-map/backend/internal/force"
	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/logger"
	"github.com/onnwee/metro-map/backend/internal/metrics"
	"github.com/onnwee/metro-map/backend/internal/sim"
	"github.com/onnwee/metro-map/backend/internal/terrain"
	"github.com/onnwee/metro-map/backend/internal/tessellation"
	"github.com/onnwee/metro-map/backend/internal/tracing"
)

// MaxSites bounds the number of sites a city can be generated from.
const MaxSites = 5000

// Force names registered on every polygon simulation, in application order.
const (
	ForceCenter         = "center"
	ForceCollide        = "collide"
	ForceManyBody       = "manyBody"
	ForcePolygonCollide = "polygonCollide"
)

// Simulation parameters shared by every polygon.
const (
	collidePadding     = 10
	collideIterations  = 2
	manyBodyDistMin    = 20
	manyBodyIterations = 4
	dragAlphaTarget    = 0.3
)

var (
	ErrPolygonNotFound    = errors.New("city: polygon not found")
	ErrNodeNotFound       = errors.New("city: node not found")
	ErrInvalidAlphaTarget = errors.New("city: alpha target must be within [0, 1]")
	ErrInvalidSites       = errors.New("city: invalid sites")
	ErrInvalidOptions     = errors.New("city: invalid options")
)

// DragMode selects how dragging a building moves its cluster.
type DragMode string

const (
	// DragSingle moves only the dragged building.
	DragSingle DragMode = "single"
	// DragFollow also moves the center force of the cluster to the pointer.
	DragFollow DragMode = "follow"
)

// Options configures a City.
type Options struct {
	Width           float64
	Height          float64
	Sites           int
	Seed            int64
	RelaxIterations int
	Waterline       float64
	RandomJiggle    bool
	SimulateOnStart bool
	DragMode        DragMode
	// Margin insets the tessellated area from the canvas border.
	Margin   float64
	Profiles Profiles
	Provider tessellation.Provider
}

// DefaultOptions returns a 960x600 canvas with 30 sites.
func DefaultOptions() Options {
	return Options{
		Width:           960,
		Height:          600,
		Sites:           30,
		Seed:            1,
		Waterline:       terrain.DefaultWaterline,
		SimulateOnStart: true,
		DragMode:        DragFollow,
		Margin:          20,
	}
}

func (o *Options) normalize() error {
	if !(o.Width > 0) || !(o.Height > 0) || math.IsInf(o.Width, 0) || math.IsInf(o.Height, 0) {
		return fmt.Errorf("%w: canvas %gx%g", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.Margin < 0 || 2*o.Margin >= math.Min(o.Width, o.Height) {
		return fmt.Errorf("%w: margin %g", ErrInvalidOptions, o.Margin)
	}
	if o.RelaxIterations < 0 {
		return fmt.Errorf("%w: negative relax iterations", ErrInvalidOptions)
	}
	switch o.DragMode {
	case "":
		o.DragMode = DragFollow
	case DragSingle, DragFollow:
	default:
		return fmt.Errorf("%w: drag mode %q", ErrInvalidOptions, o.DragMode)
	}
	if o.Profiles == nil {
		o.Profiles = DefaultProfiles()
	}
	if err := o.Profiles.Validate(); err != nil {
		return err
	}
	if o.Provider == nil {
		o.Provider = tessellation.NewVoronoiProvider()
	}
	return nil
}

// City owns the polygons of one map and the simulation of each polygon.
// Every method is safe for concurrent use.
type City struct {
	mu sync.RWMutex

	id   uuid.UUID
	opts Options
	rng  *rand.Rand
	log  *slog.Logger

	polygons []*Polygon
	// sims[i] drives polygons[i]; nil when the polygon has no buildings.
	sims   []*sim.Simulation
	layers *terrain.Layers

	simulating bool
	drag       *dragState

	version uint64
	ticks   uint64
}

// New generates a city from opts.Sites random sites.
func New(ctx context.Context, opts Options) (*City, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	id := uuid.New()
	c := &City{
		id:         id,
		opts:       opts,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		log:        logger.WithComponent("city").With("city_id", id.String()),
		simulating: opts.SimulateOnStart,
	}
	if err := c.Regenerate(ctx, opts.Sites); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *City) ID() uuid.UUID {
	return c.id
}

// Options returns the effective options.
func (c *City) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// Version changes whenever anything a renderer draws changes.
func (c *City) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Simulating reports the global simulate toggle.
func (c *City) Simulating() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simulating
}

// Regenerate replaces the whole city with one built from n random sites.
func (c *City) Regenerate(ctx context.Context, n int) error {
	if n <= 0 || n > MaxSites {
		return fmt.Errorf("%w: %d sites", ErrInvalidSites, n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sites := tessellation.RandomSites(c.rng, n, c.opts.Width, c.opts.Height)
	return c.generate(ctx, sites)
}

// RegenerateFrom replaces the whole city with one built from the given sites.
func (c *City) RegenerateFrom(ctx context.Context, sites []geometry.Point) error {
	if len(sites) == 0 || len(sites) > MaxSites {
		return fmt.Errorf("%w: %d sites", ErrInvalidSites, len(sites))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generate(ctx, sites)
}

func (c *City) generate(ctx context.Context, sites []geometry.Point) error {
	ctx, span := tracing.StartSpan(ctx, "city.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("sites", len(sites)))
	start := time.Now()

	cells, err := c.tessellate(sites)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("tessellate: %w", err)
	}

	w, h := c.opts.Width, c.opts.Height
	polygons := make([]*Polygon, len(cells))
	centers := make([]geometry.Point, len(cells))
	for i, cell := range cells {
		p := newPolygon(cell)
		p.Type = InitialType(c.rng, p.Center, w, h)
		polygons[i] = p
		centers[i] = p.Site
	}

	layers, err := terrain.NewLayers(centers, w, h, c.opts.Seed, c.opts.Waterline)
	if err != nil {
		return fmt.Errorf("layers: %w", err)
	}

	for _, p := range polygons {
		children, err := MakeCluster(c.rng, p, c.opts.Profiles, w, h)
		if err != nil {
			return err
		}
		p.Children = children
	}

	sims := make([]*sim.Simulation, len(polygons))
	for _, p := range polygons {
		s, err := c.newSimulation(p, p.Children, p.generation)
		if err != nil {
			return fmt.Errorf("polygon %d: %w", p.Index, err)
		}
		sims[p.Index] = s
	}

	for _, s := range c.sims {
		if s != nil {
			s.Stop()
		}
	}
	c.polygons = polygons
	c.layers = layers
	c.drag = nil
	c.sims = sims
	for _, s := range sims {
		if s != nil && c.simulating {
			s.Restart()
		}
	}
	c.version++

	metrics.CityRegenerations.Inc()
	metrics.CityRegenerationDuration.Observe(time.Since(start).Seconds())
	c.log.InfoContext(ctx, "City generated",
		"sites", len(sites),
		"polygons", len(polygons),
		"nodes", c.nodeCount(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// tessellate partitions the canvas inset by the margin. Sites are given and
// cells are returned in canvas coordinates.
func (c *City) tessellate(sites []geometry.Point) ([]tessellation.Cell, error) {
	m := c.opts.Margin
	shift := geometry.Pt(m, m)
	w, h := c.opts.Width-2*m, c.opts.Height-2*m

	local := make([]geometry.Point, len(sites))
	for i, s := range sites {
		local[i] = s.Sub(shift)
	}
	if c.opts.RelaxIterations > 0 {
		relaxed, err := tessellation.Relax(c.opts.Provider, local, w, h, c.opts.RelaxIterations)
		if err != nil {
			return nil, err
		}
		local = relaxed
	}

	cells, err := c.opts.Provider.Tessellate(local, w, h)
	if err != nil {
		return nil, err
	}
	for i := range cells {
		cells[i].Site = cells[i].Site.Add(shift)
		vs := make([]geometry.Point, len(cells[i].Vertices))
		for j, v := range cells[i].Vertices {
			vs[j] = v.Add(shift)
		}
		cells[i].Vertices = vs
	}
	return cells, nil
}

// newSimulation builds the stopped simulation of children inside p, or nil
// when there are none. Its tick callback only counts while p is still at
// generation gen. p itself is not modified.
func (c *City) newSimulation(p *Polygon, children []*sim.Node, gen uint64) (*sim.Simulation, error) {
	if len(children) == 0 {
		return nil, nil
	}
	s, err := sim.New(children, sim.WithOnTick(func(_ *sim.Simulation, _ uint64) {
		if p.generation != gen {
			return
		}
		p.ticks++
	}))
	if err != nil {
		return nil, err
	}

	jiggle := force.JigglePolicy(force.ZeroJiggle)
	if c.opts.RandomJiggle {
		jiggle = force.RandomJiggle(c.rng)
	}

	collide := force.NewCollide(func(n *sim.Node) float64 { return n.Radius() + collidePadding })
	collide.Iterations = collideIterations
	collide.Jiggle = jiggle

	manyBody := force.NewManyBody()
	manyBody.DistanceMin = manyBodyDistMin
	manyBody.DistanceMax = math.Max(p.Bounds.Width, p.Bounds.Height) / 2
	manyBody.Iterations = manyBodyIterations
	manyBody.Jiggle = jiggle

	s.SetForce(ForceCenter, force.NewCenter(p.Center.X, p.Center.Y))
	s.SetForce(ForceCollide, collide)
	s.SetForce(ForceManyBody, manyBody)
	s.SetForce(ForcePolygonCollide, force.NewPolygonCollide(p.Vertices, p.Center))
	s.Stop()
	return s, nil
}

func (c *City) polygon(index int) (*Polygon, error) {
	if index < 0 || index >= len(c.polygons) {
		return nil, fmt.Errorf("%w: %d", ErrPolygonNotFound, index)
	}
	return c.polygons[index], nil
}

// CreateSimulation rebuilds the simulation of a polygon around its current
// buildings and starts it. Polygons without buildings get none.
func (c *City) CreateSimulation(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.polygon(index)
	if err != nil {
		return err
	}
	s, err := c.newSimulation(p, p.Children, p.generation+1)
	if err != nil {
		return err
	}
	if old := c.sims[index]; old != nil {
		old.Stop()
	}
	c.releaseDragOn(index)
	p.generation++
	c.sims[index] = s
	if s != nil {
		s.Start()
	}
	c.version++
	return nil
}

// withSimulation runs fn on the simulation of polygon index under the write
// lock. It is a no-op for polygons without buildings.
func (c *City) withSimulation(index int, fn func(s *sim.Simulation)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.polygon(index); err != nil {
		return err
	}
	if s := c.sims[index]; s != nil {
		fn(s)
		c.version++
	}
	return nil
}

// Start resets alpha and runs the simulation of one polygon.
func (c *City) Start(index int) error {
	return c.withSimulation(index, (*sim.Simulation).Start)
}

// Stop halts the simulation of one polygon.
func (c *City) Stop(index int) error {
	return c.withSimulation(index, (*sim.Simulation).Stop)
}

// Restart resumes the simulation of one polygon.
func (c *City) Restart(index int) error {
	return c.withSimulation(index, (*sim.Simulation).Restart)
}

// SetAlphaTarget holds the alpha of one polygon simulation near v.
func (c *City) SetAlphaTarget(index int, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %g", ErrInvalidAlphaTarget, v)
	}
	return c.withSimulation(index, func(s *sim.Simulation) { s.SetAlphaTarget(v) })
}

func (c *City) all(simulating bool, fn func(s *sim.Simulation)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulating = simulating
	for _, s := range c.sims {
		if s != nil {
			fn(s)
		}
	}
	c.version++
}

// StartAll turns the simulate toggle on and starts every simulation.
func (c *City) StartAll() {
	c.all(true, (*sim.Simulation).Start)
}

// RestartAll turns the simulate toggle on and resumes every simulation.
func (c *City) RestartAll() {
	c.all(true, (*sim.Simulation).Restart)
}

// StopAll turns the simulate toggle off and halts every simulation.
func (c *City) StopAll() {
	c.all(false, (*sim.Simulation).Stop)
}

// Retype changes the district type of a polygon. Its buildings and
// simulation are replaced and the new simulation starts.
func (c *City) Retype(ctx context.Context, index int, t DistrictType) error {
	ctx, span := tracing.StartSpan(ctx, "city.retype")
	defer span.End()
	span.SetAttributes(attribute.Int("polygon", index), attribute.String("type", string(t)))

	if _, err := ParseDistrictType(string(t)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.polygon(index)
	if err != nil {
		return err
	}
	if err := c.retype(p, t, "api"); err != nil {
		span.RecordError(err)
		return err
	}
	c.log.DebugContext(ctx, "Polygon retyped", "polygon", index, "type", t, "nodes", len(p.Children))
	return nil
}

// retype must be called with the write lock held.
func (c *City) retype(p *Polygon, t DistrictType, source string) error {
	prev := p.Type
	p.Type = t
	children, err := MakeCluster(c.rng, p, c.opts.Profiles, c.opts.Width, c.opts.Height)
	if err != nil {
		p.Type = prev
		return err
	}

	s, err := c.newSimulation(p, children, p.generation+1)
	if err != nil {
		p.Type = prev
		return fmt.Errorf("polygon %d: %w", p.Index, err)
	}

	if old := c.sims[p.Index]; old != nil {
		old.Stop()
	}
	c.releaseDragOn(p.Index)
	p.Children = children
	p.generation++
	c.sims[p.Index] = s
	if s != nil {
		s.Start()
	}
	c.version++
	metrics.PolygonRetypes.WithLabelValues(string(t), source).Inc()
	return nil
}

// TickReport summarises one tick batch.
type TickReport struct {
	Ticked   int
	Active   int
	Version  uint64
	Duration time.Duration
}

// Step ticks every running simulation once under the write lock.
func (c *City) Step() TickReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()

	var r TickReport
	for _, s := range c.sims {
		if s == nil {
			continue
		}
		if s.Step() {
			r.Ticked++
		}
		if s.State() != sim.Stopped {
			r.Active++
		}
	}
	if r.Ticked > 0 {
		c.ticks += uint64(r.Ticked)
		c.version++
	}
	r.Version = c.version
	r.Duration = time.Since(start)
	return r
}

// MetricsSample implements metrics.Source.
func (c *City) MetricsSample(_ context.Context) (metrics.Sample, error) {
	st := c.Stats()
	byType := make(map[string]int, len(st.NodesByType))
	for t, n := range st.NodesByType {
		byType[string(t)] = n
	}
	return metrics.Sample{
		Polygons:          st.Polygons,
		ActiveSimulations: st.ActiveSimulations,
		MeanAlpha:         st.MeanAlpha,
		NodesByType:       byType,
	}, nil
}

func (c *City) nodeCount() int {
	n := 0
	for _, p := range c.polygons {
		n += len(p.Children)
	}
	return n
}
