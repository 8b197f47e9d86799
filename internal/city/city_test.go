package city

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/onnwee/metro-map/backend/internal/force"
	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
	"github.com/onnwee/metro-map/backend/internal/tessellation"
)

// gridCenter is an inner cell of the 4x4 test grid; it is never empty.
const gridCenter = 5

func newTestCity(t *testing.T, simulate bool) *City {
	t.Helper()
	opts := DefaultOptions()
	opts.Width, opts.Height = 840, 840
	opts.Sites = 16
	opts.Seed = 42
	opts.SimulateOnStart = simulate
	opts.Provider = tessellation.GridProvider{}
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewCity(t *testing.T) {
	c := newTestCity(t, false)
	snap := c.Snapshot()

	if len(snap.Polygons) != 16 {
		t.Fatalf("expected 16 polygons, got %d", len(snap.Polygons))
	}
	if snap.ID == "" || snap.Version == 0 {
		t.Errorf("snapshot should carry an id and a version, got %q/%d", snap.ID, snap.Version)
	}
	for _, p := range snap.Polygons {
		for _, v := range p.Vertices {
			if v.X < 20 || v.X > 820 || v.Y < 20 || v.Y > 820 {
				t.Fatalf("polygon %d vertex %v outside the margin", p.Index, v)
			}
		}
		if p.Area != 200*200 {
			t.Errorf("polygon %d area = %f, want 40000", p.Index, p.Area)
		}
		if (p.Type == Empty) != (len(p.Nodes) == 0) {
			t.Errorf("polygon %d of type %s has %d nodes", p.Index, p.Type, len(p.Nodes))
		}
		if p.State != "stopped" {
			t.Errorf("polygon %d should be stopped with simulate off, got %s", p.Index, p.State)
		}
	}
	for _, corner := range []int{0, 3, 12, 15} {
		if snap.Polygons[corner].Type != Empty {
			t.Errorf("corner polygon %d should start empty, got %s", corner, snap.Polygons[corner].Type)
		}
	}
	if snap.Polygons[gridCenter].Type == Empty {
		t.Error("inner polygon should not start empty")
	}
}

func TestNewCityOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
		want   error
	}{
		{"zero width", func(o *Options) { o.Width = 0 }, ErrInvalidOptions},
		{"margin eats the canvas", func(o *Options) { o.Margin = 500 }, ErrInvalidOptions},
		{"negative relax", func(o *Options) { o.RelaxIterations = -1 }, ErrInvalidOptions},
		{"unknown drag mode", func(o *Options) { o.DragMode = "wobble" }, ErrInvalidOptions},
		{"no sites", func(o *Options) { o.Sites = 0 }, ErrInvalidSites},
		{"bad profile", func(o *Options) {
			o.Profiles = DefaultProfiles()
			delete(o.Profiles, Plaza)
		}, ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Provider = tessellation.GridProvider{}
			tt.modify(&opts)
			if _, err := New(context.Background(), opts); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewCityWithVoronoi(t *testing.T) {
	opts := DefaultOptions()
	opts.RelaxIterations = 2
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st := c.Stats()
	if st.Polygons == 0 || st.Polygons > opts.Sites {
		t.Fatalf("expected between 1 and %d polygons, got %d", opts.Sites, st.Polygons)
	}
	if st.ActiveSimulations == 0 {
		t.Error("simulate on start should leave simulations running")
	}
}

func TestSimulationForces(t *testing.T) {
	c := newTestCity(t, false)
	s := c.sims[gridCenter]
	if s == nil {
		t.Fatal("inner polygon has no simulation")
	}
	want := []string{ForceCenter, ForceCollide, ForceManyBody, ForcePolygonCollide}
	got := s.ForceNames()
	if len(got) != len(want) {
		t.Fatalf("forces = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("forces = %v, want %v", got, want)
		}
	}

	f, _ := s.Force(ForceManyBody)
	mb := f.(*force.ManyBody)
	if mb.DistanceMin != 20 || mb.DistanceMax != 100 || mb.Iterations != 4 {
		t.Errorf("many-body parameters = %f/%f/%d, want 20/100/4", mb.DistanceMin, mb.DistanceMax, mb.Iterations)
	}
	f, _ = s.Force(ForceCollide)
	if col := f.(*force.Collide); col.Iterations != 2 {
		t.Errorf("collide iterations = %d, want 2", col.Iterations)
	}
}

func TestStepTicksRunningSimulations(t *testing.T) {
	c := newTestCity(t, true)
	nonEmpty := 0
	for _, p := range c.polygons {
		if len(p.Children) > 0 {
			nonEmpty++
		}
	}

	before := c.Version()
	r := c.Step()
	if r.Ticked != nonEmpty {
		t.Errorf("expected %d simulations ticked, got %d", nonEmpty, r.Ticked)
	}
	if r.Version <= before {
		t.Errorf("version should advance after a tick, %d -> %d", before, r.Version)
	}
	if got := c.polygons[gridCenter].ticks; got != 1 {
		t.Errorf("polygon tick count = %d, want 1", got)
	}

	c.StopAll()
	if c.Simulating() {
		t.Error("StopAll should turn the simulate toggle off")
	}
	if r := c.Step(); r.Ticked != 0 || r.Active != 0 {
		t.Errorf("stopped city ticked %d, %d active", r.Ticked, r.Active)
	}

	c.RestartAll()
	if r := c.Step(); r.Ticked != nonEmpty {
		t.Errorf("RestartAll should resume %d simulations, got %d", nonEmpty, r.Ticked)
	}
}

func TestSimulationsCoolDown(t *testing.T) {
	c := newTestCity(t, true)
	for i := 0; i < 400; i++ {
		c.Step()
	}
	if st := c.Stats(); st.ActiveSimulations != 0 {
		t.Errorf("every simulation should stop after cooling, %d still active", st.ActiveSimulations)
	}
	if r := c.Step(); r.Ticked != 0 {
		t.Errorf("cooled city should not tick, got %d", r.Ticked)
	}
}

func TestNodesStayNearTheirPolygon(t *testing.T) {
	c := newTestCity(t, true)
	for i := 0; i < 200; i++ {
		c.Step()
	}
	for _, p := range c.Snapshot().Polygons {
		b := geometry.PolygonBounds(p.Vertices)
		for _, n := range p.Nodes {
			if math.IsNaN(n.X) || math.IsNaN(n.Y) {
				t.Fatalf("polygon %d node %d has a NaN position", p.Index, n.Index)
			}
			slack := 2 * (n.Radius + collidePadding)
			if !b.Expand(slack).Contains(geometry.Pt(n.X, n.Y)) {
				t.Errorf("polygon %d node %d at (%f, %f) escaped %+v", p.Index, n.Index, n.X, n.Y, b)
			}
		}
	}
}

func TestPerPolygonControls(t *testing.T) {
	c := newTestCity(t, false)

	if err := c.Start(gridCenter); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p, _ := c.Polygon(gridCenter)
	if p.State != "running" || p.Alpha != 1 {
		t.Errorf("started polygon state %s alpha %f", p.State, p.Alpha)
	}

	if err := c.SetAlphaTarget(gridCenter, 0.5); err != nil {
		t.Fatalf("SetAlphaTarget: %v", err)
	}
	if got := c.sims[gridCenter].AlphaTarget(); got != 0.5 {
		t.Errorf("alpha target = %f, want 0.5", got)
	}
	for _, bad := range []float64{-0.1, 1.5, math.NaN()} {
		if err := c.SetAlphaTarget(gridCenter, bad); !errors.Is(err, ErrInvalidAlphaTarget) {
			t.Errorf("SetAlphaTarget(%f): expected ErrInvalidAlphaTarget, got %v", bad, err)
		}
	}

	if err := c.Stop(gridCenter); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(gridCenter); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if err := c.Restart(gridCenter); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if st := c.sims[gridCenter].State(); st != sim.Running {
		t.Errorf("restarted state = %s", st)
	}

	// Empty polygons accept control calls and do nothing.
	if err := c.Start(0); err != nil {
		t.Errorf("Start on an empty polygon: %v", err)
	}
	if err := c.Start(99); !errors.Is(err, ErrPolygonNotFound) {
		t.Errorf("expected ErrPolygonNotFound, got %v", err)
	}
}

func TestCreateSimulation(t *testing.T) {
	c := newTestCity(t, false)
	old := c.sims[gridCenter]
	if err := c.CreateSimulation(gridCenter); err != nil {
		t.Fatalf("CreateSimulation: %v", err)
	}
	s := c.sims[gridCenter]
	if s == old {
		t.Fatal("expected a fresh simulation")
	}
	if s.State() != sim.Running {
		t.Errorf("new simulation should run, got %s", s.State())
	}
	if old.State() != sim.Stopped {
		t.Errorf("replaced simulation should be stopped, got %s", old.State())
	}
	if err := c.CreateSimulation(0); err != nil || c.sims[0] != nil {
		t.Errorf("empty polygon should get no simulation, err %v", err)
	}
}

func TestCreateSimulationFailureKeepsState(t *testing.T) {
	c := newTestCity(t, true)
	p := c.polygons[gridCenter]
	old, gen := c.sims[gridCenter], p.generation
	first := p.Children[0]

	p.Children[0] = nil
	if err := c.CreateSimulation(gridCenter); !errors.Is(err, sim.ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode, got %v", err)
	}
	p.Children[0] = first

	if p.generation != gen {
		t.Errorf("generation moved from %d to %d on failure", gen, p.generation)
	}
	if c.sims[gridCenter] != old || old.State() != sim.Running {
		t.Error("failed rebuild should leave the running simulation in place")
	}
	if r := c.Step(); r.Ticked == 0 || p.ticks == 0 {
		t.Errorf("kept simulation should still count ticks, ticked %d ticks %d", r.Ticked, p.ticks)
	}
}

func TestRebuiltSimulationMatchesGeneration(t *testing.T) {
	c := newTestCity(t, false)
	p := c.polygons[gridCenter]
	for _, rebuild := range []func() error{
		func() error { return c.CreateSimulation(gridCenter) },
		func() error { return c.Retype(context.Background(), gridCenter, Rich) },
	} {
		before := p.ticks
		if err := rebuild(); err != nil {
			t.Fatalf("rebuild: %v", err)
		}
		c.Step()
		if p.ticks != before+1 {
			t.Errorf("tick of the rebuilt simulation not counted: %d -> %d", before, p.ticks)
		}
	}
}

func TestRetype(t *testing.T) {
	c := newTestCity(t, false)
	ctx := context.Background()

	if err := c.Retype(ctx, gridCenter, Plaza); err != nil {
		t.Fatalf("Retype: %v", err)
	}
	p, _ := c.Polygon(gridCenter)
	if p.Type != Plaza || p.Color != "yellow" {
		t.Errorf("retyped polygon = %s/%s", p.Type, p.Color)
	}
	// The inner cell is in the dense core.
	if len(p.Nodes) != 3 {
		t.Errorf("central plaza should have 3 buildings, got %d", len(p.Nodes))
	}
	if p.State != "running" {
		t.Errorf("retyped polygon should start simulating, got %s", p.State)
	}

	if err := c.Retype(ctx, gridCenter, Empty); err != nil {
		t.Fatalf("Retype to empty: %v", err)
	}
	p, _ = c.Polygon(gridCenter)
	if len(p.Nodes) != 0 || c.sims[gridCenter] != nil || p.State != "stopped" {
		t.Errorf("empty polygon kept %d nodes, state %s", len(p.Nodes), p.State)
	}

	if err := c.Retype(ctx, gridCenter, "castle"); !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
	if err := c.Retype(ctx, -1, Rich); !errors.Is(err, ErrPolygonNotFound) {
		t.Errorf("expected ErrPolygonNotFound, got %v", err)
	}
}

func TestStaleTickCallbackIgnored(t *testing.T) {
	c := newTestCity(t, false)
	old := c.sims[gridCenter]
	if err := c.Retype(context.Background(), gridCenter, Rich); err != nil {
		t.Fatalf("Retype: %v", err)
	}

	old.Restart()
	if !old.Step() {
		t.Fatal("old simulation should still step when driven directly")
	}
	if got := c.polygons[gridCenter].ticks; got != 0 {
		t.Errorf("tick from a discarded simulation was counted: %d", got)
	}
}

func TestRegenerate(t *testing.T) {
	c := newTestCity(t, false)
	id, before := c.ID(), c.Version()

	if err := c.Regenerate(context.Background(), 9); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if got := len(c.Snapshot().Polygons); got != 9 {
		t.Errorf("expected 9 polygons, got %d", got)
	}
	if c.ID() != id {
		t.Error("regenerating should keep the city id")
	}
	if c.Version() <= before {
		t.Error("regenerating should advance the version")
	}

	sites := []geometry.Point{{X: 100, Y: 100}, {X: 700, Y: 100}, {X: 100, Y: 700}, {X: 700, Y: 700}}
	if err := c.RegenerateFrom(context.Background(), sites); err != nil {
		t.Fatalf("RegenerateFrom: %v", err)
	}
	if got := c.Stats().Polygons; got != 4 {
		t.Errorf("expected 4 polygons, got %d", got)
	}

	for _, n := range []int{0, -3, MaxSites + 1} {
		if err := c.Regenerate(context.Background(), n); !errors.Is(err, ErrInvalidSites) {
			t.Errorf("Regenerate(%d): expected ErrInvalidSites, got %v", n, err)
		}
	}
	if err := c.RegenerateFrom(context.Background(), nil); !errors.Is(err, ErrInvalidSites) {
		t.Errorf("expected ErrInvalidSites, got %v", err)
	}
}

func TestStatsAndMetricsSample(t *testing.T) {
	c := newTestCity(t, true)
	st := c.Stats()

	total := 0
	for _, n := range st.NodesByType {
		total += n
	}
	if total != st.Nodes || st.Nodes == 0 {
		t.Errorf("nodes by type sum to %d, total %d", total, st.Nodes)
	}
	if st.NodesByType[Empty] != 0 {
		t.Errorf("empty polygons should hold no nodes, got %d", st.NodesByType[Empty])
	}
	if st.MeanAlpha != 1 {
		t.Errorf("fresh simulations should have alpha 1, got %f", st.MeanAlpha)
	}

	sample, err := c.MetricsSample(context.Background())
	if err != nil {
		t.Fatalf("MetricsSample: %v", err)
	}
	if sample.Polygons != 16 || sample.ActiveSimulations != st.ActiveSimulations {
		t.Errorf("sample %+v does not match stats %+v", sample, st)
	}
}
