package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/onnwee/metro-map/backend/internal/quadtree"
)

var (
	// ErrEmptyNodes is returned when a simulation is built without nodes.
	ErrEmptyNodes = errors.New("sim: empty node set")
	// ErrInvalidNode is returned for a node with a non-positive size.
	ErrInvalidNode = errors.New("sim: invalid node")
	// ErrUnknownForce is returned when looking up an unregistered force.
	ErrUnknownForce = errors.New("sim: unknown force")
)

// Default schedule, matching d3-force.
const (
	DefaultAlphaMin      = 0.001
	DefaultVelocityDecay = 0.4
)

// DefaultAlphaDecay cools alpha from 1 to DefaultAlphaMin in ~300 ticks.
var DefaultAlphaDecay = 1 - math.Pow(DefaultAlphaMin, 1.0/300)

// Force mutates node velocities (and occasionally positions) once per tick.
type Force interface {
	Initialize(nodes []*Node)
	Apply(alpha float64)
}

// State is the run state of a simulation.
type State int

const (
	Stopped State = iota
	Running
	Cooling
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Cooling:
		return "cooling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TickFunc is called after every driven tick with the generation that was
// current when the tick began.
type TickFunc func(s *Simulation, generation uint64)

type namedForce struct {
	name  string
	force Force
}

// Simulation integrates a set of nodes under an ordered list of forces.
// It is not safe for concurrent use; callers serialise access.
type Simulation struct {
	nodes  []*Node
	forces []namedForce

	alpha         float64
	alphaMin      float64
	alphaTarget   float64
	alphaDecay    float64
	velocityDecay float64

	state      State
	generation uint64
	onTick     TickFunc
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithAlphaMin sets the threshold below which the simulation stops itself.
func WithAlphaMin(v float64) Option {
	return func(s *Simulation) { s.alphaMin = v }
}

// WithAlphaDecay sets the per-tick interpolation rate toward alphaTarget.
func WithAlphaDecay(v float64) Option {
	return func(s *Simulation) { s.alphaDecay = v }
}

// WithVelocityDecay sets the friction applied during integration.
func WithVelocityDecay(v float64) Option {
	return func(s *Simulation) { s.velocityDecay = v }
}

// WithOnTick registers the tick callback.
func WithOnTick(fn TickFunc) Option {
	return func(s *Simulation) { s.onTick = fn }
}

// New builds a stopped simulation. Nodes without a finite position are
// placed in a phyllotaxis spiral around the origin.
func New(nodes []*Node, opts ...Option) (*Simulation, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyNodes
	}
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: node %d is nil", ErrInvalidNode, i)
		}
		if err := n.validate(); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	s := &Simulation{
		nodes:         nodes,
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		alphaDecay:    DefaultAlphaDecay,
		velocityDecay: DefaultVelocityDecay,
		state:         Stopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initializeNodes()
	return s, nil
}

func (s *Simulation) initializeNodes() {
	for i, n := range s.nodes {
		n.Index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			n.X, n.Y = Phyllotaxis(i)
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
}

// SetForce registers f under name, replacing any force already registered
// under it while keeping its position in the application order.
func (s *Simulation) SetForce(name string, f Force) {
	f.Initialize(s.nodes)
	for i := range s.forces {
		if s.forces[i].name == name {
			s.forces[i].force = f
			return
		}
	}
	s.forces = append(s.forces, namedForce{name: name, force: f})
}

// Force returns the force registered under name.
func (s *Simulation) Force(name string) (Force, error) {
	for _, nf := range s.forces {
		if nf.name == name {
			return nf.force, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownForce, name)
}

// RemoveForce unregisters name. Missing names are ignored.
func (s *Simulation) RemoveForce(name string) {
	for i := range s.forces {
		if s.forces[i].name == name {
			s.forces = append(s.forces[:i], s.forces[i+1:]...)
			return
		}
	}
}

// ForceNames lists the registered forces in application order.
func (s *Simulation) ForceNames() []string {
	names := make([]string, len(s.forces))
	for i, nf := range s.forces {
		names[i] = nf.name
	}
	return names
}

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*Node { return s.nodes }

func (s *Simulation) Alpha() float64 { return s.alpha }

func (s *Simulation) AlphaMin() float64 { return s.alphaMin }

func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

func (s *Simulation) AlphaDecay() float64 { return s.alphaDecay }

func (s *Simulation) VelocityDecay() float64 { return s.velocityDecay }

func (s *Simulation) State() State { return s.state }

// Generation changes on every Stop and Restart.
func (s *Simulation) Generation() uint64 { return s.generation }

// SetAlpha overrides the current alpha.
func (s *Simulation) SetAlpha(a float64) {
	s.alpha = a
}

// Start resets alpha to 1 and runs the simulation.
func (s *Simulation) Start() {
	s.alpha = 1
	s.state = Running
}

// Restart resumes a stopped or cooling simulation. Alpha is raised back to
// 1 and the alpha target is kept.
func (s *Simulation) Restart() {
	if s.alpha < 1 {
		s.alpha = 1
	}
	s.generation++
	s.state = Running
}

// Stop halts the simulation. Calling Stop on a stopped simulation only
// bumps the generation.
func (s *Simulation) Stop() {
	s.generation++
	s.state = Stopped
}

// SetAlphaTarget holds alpha near t. A positive target keeps the simulation
// running; zero lets it cool down and stop.
func (s *Simulation) SetAlphaTarget(t float64) {
	s.alphaTarget = t
	switch {
	case t > 0:
		s.state = Running
	case s.state == Running:
		s.state = Cooling
	}
}

// Tick advances the simulation by one step regardless of its state:
// forces in registration order, integration, then alpha decay.
func (s *Simulation) Tick() {
	for _, nf := range s.forces {
		nf.force.Apply(s.alpha)
	}

	keep := 1 - s.velocityDecay
	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= keep
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= keep
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
}

// Step is the driven tick. It does nothing for a stopped simulation,
// otherwise ticks once, stops itself once cooled below alphaMin and fires
// the tick callback. It reports whether a tick happened.
func (s *Simulation) Step() bool {
	if s.state == Stopped {
		return false
	}
	gen := s.generation
	s.Tick()
	if s.alpha < s.alphaMin && s.alphaTarget < s.alphaMin {
		s.state = Stopped
	}
	if s.onTick != nil {
		s.onTick(s, gen)
	}
	return true
}

// Find returns the node nearest to (x, y) within radius; radius <= 0 means
// no limit.
func (s *Simulation) Find(x, y, radius float64) (*Node, bool) {
	tree := quadtree.New(len(s.nodes), func(i int) (float64, float64) {
		return s.nodes[i].X, s.nodes[i].Y
	})
	i, ok := tree.Find(x, y, radius)
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}
