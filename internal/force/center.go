package force

import "github.com/onnwee/metro-map/backend/internal/sim"

// Center translates all nodes so that their mean position is (X, Y).
type Center struct {
	X, Y     float64
	Strength float64

	nodes []*sim.Node
}

func NewCenter(x, y float64) *Center {
	return &Center{X: x, Y: y, Strength: 1}
}

func (f *Center) Initialize(nodes []*sim.Node) {
	f.nodes = nodes
}

func (f *Center) Apply(_ float64) {
	n := len(f.nodes)
	if n == 0 {
		return
	}
	var sx, sy float64
	for _, node := range f.nodes {
		sx += node.X
		sy += node.Y
	}
	sx = (sx/float64(n) - f.X) * f.Strength
	sy = (sy/float64(n) - f.Y) * f.Strength
	for _, node := range f.nodes {
		node.X -= sx
		node.Y -= sy
	}
}
