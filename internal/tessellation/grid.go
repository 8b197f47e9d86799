package tessellation

import (
	"fmt"
	"math"

	"github.com/onnwee/metro-map/backend/internal/geometry"
)

// GridProvider splits the canvas into a near-square grid of rectangular
// cells, one per site, ignoring where the sites lie. Cells neighbour their
// four orthogonal cells. It gives deterministic layouts for tests and demos.
type GridProvider struct{}

func (GridProvider) Tessellate(sites []geometry.Point, width, height float64) ([]Cell, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: %gx%g", ErrInvalidExtent, width, height)
	}
	if len(sites) == 0 {
		return nil, ErrNoSites
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(sites)))))
	rows := (len(sites) + cols - 1) / cols
	cw, ch := width/float64(cols), height/float64(rows)

	cells := make([]Cell, 0, rows*cols)
	for r := range rows {
		for c := range cols {
			x0, y0 := float64(c)*cw, float64(r)*ch
			x1, y1 := x0+cw, y0+ch
			cell := Cell{
				Index:    r*cols + c,
				Site:     geometry.Pt((x0+x1)/2, (y0+y1)/2),
				Vertices: []geometry.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}},
			}
			if c > 0 {
				cell.Neighbors = append(cell.Neighbors, cell.Index-1)
			}
			if c < cols-1 {
				cell.Neighbors = append(cell.Neighbors, cell.Index+1)
			}
			if r > 0 {
				cell.Neighbors = append(cell.Neighbors, cell.Index-cols)
			}
			if r < rows-1 {
				cell.Neighbors = append(cell.Neighbors, cell.Index+cols)
			}
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

// ProviderByName maps a configuration value to a provider.
func ProviderByName(name string) (Provider, error) {
	switch name {
	case "", "voronoi":
		return NewVoronoiProvider(), nil
	case "grid":
		return GridProvider{}, nil
	}
	return nil, fmt.Errorf("tessellation: unknown provider %q", name)
}
