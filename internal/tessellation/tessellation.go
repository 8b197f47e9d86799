package tessellation

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/pzsz/voronoi"

	"github.com/onnwee/metro-map/backend/internal/geometry"
)

var (
	// ErrNoSites is returned when no usable site lies inside the extent.
	ErrNoSites = errors.New("tessellation: no sites")
	// ErrInvalidExtent is returned for a non-positive canvas size.
	ErrInvalidExtent = errors.New("tessellation: invalid extent")
	// ErrDegenerate is returned when every cell collapsed to fewer than 3 vertices.
	ErrDegenerate = errors.New("tessellation: degenerate diagram")
)

// Cell is one closed Voronoi cell clipped to the canvas.
type Cell struct {
	Index     int
	Site      geometry.Point
	Vertices  []geometry.Point
	Neighbors []int
}

// Provider partitions a canvas into cells around sites.
type Provider interface {
	Tessellate(sites []geometry.Point, width, height float64) ([]Cell, error)
}

// VoronoiProvider computes cells with Fortune's algorithm from
// github.com/pzsz/voronoi. Duplicate sites and sites outside the canvas are
// dropped; cells with fewer than 3 vertices are discarded and the remaining
// cells are renumbered in site order.
type VoronoiProvider struct{}

// NewVoronoiProvider returns the default provider.
func NewVoronoiProvider() *VoronoiProvider {
	return &VoronoiProvider{}
}

func (p *VoronoiProvider) Tessellate(sites []geometry.Point, width, height float64) ([]Cell, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidExtent, width, height)
	}

	order := make(map[voronoi.Vertex]int, len(sites))
	vs := make([]voronoi.Vertex, 0, len(sites))
	for _, s := range sites {
		if !s.IsFinite() || s.X < 0 || s.X > width || s.Y < 0 || s.Y > height {
			continue
		}
		v := voronoi.Vertex{X: s.X, Y: s.Y}
		if _, dup := order[v]; dup {
			continue
		}
		order[v] = len(vs)
		vs = append(vs, v)
	}
	if len(vs) == 0 {
		return nil, ErrNoSites
	}

	diagram := voronoi.ComputeDiagram(vs, voronoi.NewBBox(0, width, 0, height), true)

	raw := make([]Cell, len(vs))
	neighbors := make([]map[int]struct{}, len(vs))
	byCell := make(map[*voronoi.Cell]int, len(diagram.Cells))
	for _, c := range diagram.Cells {
		i, ok := order[c.Site]
		if !ok {
			continue
		}
		byCell[c] = i
		raw[i] = Cell{
			Site:     geometry.Pt(c.Site.X, c.Site.Y),
			Vertices: cellVertices(c),
		}
		neighbors[i] = make(map[int]struct{})
	}

	for _, c := range diagram.Cells {
		i, ok := byCell[c]
		if !ok {
			continue
		}
		for _, he := range c.Halfedges {
			other := he.Edge.LeftCell
			if other == c {
				other = he.Edge.RightCell
			}
			if other == nil {
				continue
			}
			if j, ok := byCell[other]; ok && j != i {
				neighbors[i][j] = struct{}{}
			}
		}
	}

	remap := make([]int, len(raw))
	cells := make([]Cell, 0, len(raw))
	for i, c := range raw {
		if len(c.Vertices) < 3 {
			remap[i] = -1
			continue
		}
		remap[i] = len(cells)
		c.Index = len(cells)
		cells = append(cells, c)
	}
	if len(cells) == 0 {
		return nil, ErrDegenerate
	}

	for i := range raw {
		k := remap[i]
		if k < 0 {
			continue
		}
		for j := range neighbors[i] {
			if remap[j] >= 0 {
				cells[k].Neighbors = append(cells[k].Neighbors, remap[j])
			}
		}
		sort.Ints(cells[k].Neighbors)
	}
	return cells, nil
}

// cellVertices walks the halfedges and drops consecutive duplicates.
func cellVertices(c *voronoi.Cell) []geometry.Point {
	out := make([]geometry.Point, 0, len(c.Halfedges))
	for _, he := range c.Halfedges {
		v := he.GetStartpoint()
		p := geometry.Pt(v.X, v.Y)
		if !p.IsFinite() {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

// RandomSites returns n sites drawn uniformly inside the canvas.
func RandomSites(rng *rand.Rand, n int, width, height float64) []geometry.Point {
	sites := make([]geometry.Point, n)
	for i := range sites {
		sites[i] = geometry.Pt(rng.Float64()*width, rng.Float64()*height)
	}
	return sites
}

// Relax applies Lloyd relaxation: every iteration replaces the sites by the
// vertex mean of their cells.
func Relax(p Provider, sites []geometry.Point, width, height float64, iterations int) ([]geometry.Point, error) {
	for it := 0; it < iterations; it++ {
		cells, err := p.Tessellate(sites, width, height)
		if err != nil {
			return nil, fmt.Errorf("relax iteration %d: %w", it, err)
		}
		next := make([]geometry.Point, len(cells))
		for i, c := range cells {
			next[i] = geometry.VertexMean(c.Vertices)
		}
		sites = next
	}
	return sites, nil
}
