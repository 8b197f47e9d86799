package city

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

// emptyDistance is the normalised distance from the canvas center beyond
// which polygons start empty.
const emptyDistance = 0.6

// ClassifyCluster reports whether a polygon centered at center lies in the
// dense core of the canvas, (w/4, 4w/5) x (h/4, 4h/5), and so gets the
// larger of its two candidate building counts.
func ClassifyCluster(center geometry.Point, width, height float64) bool {
	return center.X > width/4 && center.X < width*4/5 &&
		center.Y > height/4 && center.Y < height*4/5
}

// InitialType picks the starting district type of a polygon: empty far from
// the canvas center, otherwise uniformly among rich, medium, poor and plaza.
func InitialType(rng *rand.Rand, center geometry.Point, width, height float64) DistrictType {
	dx := math.Abs(center.X - width/2)
	dy := math.Abs(center.Y - height/2)
	half := math.Sqrt(width*width/4 + height*height/4)
	if half == 0 || math.Hypot(dx, dy)/half > emptyDistance {
		return Empty
	}
	return randomTypes[rng.Intn(len(randomTypes))]
}

// MakeCluster builds the buildings of a polygon according to its type.
// Nodes are seeded in a phyllotaxis spiral around the polygon center.
func MakeCluster(rng *rand.Rand, p *Polygon, profiles Profiles, width, height float64) ([]*sim.Node, error) {
	profile, ok := profiles[p.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, p.Type)
	}

	n := profile.count(rng, p.Bounds.Height, ClassifyCluster(p.Center, width, height))
	nodes := make([]*sim.Node, 0, n)
	for i := 0; i < n; i++ {
		w := profile.side(rng, p.Bounds.Width, n)
		h := profile.side(rng, p.Bounds.Height, n)
		node, err := sim.NewNode(p.Index, w, h)
		if err != nil {
			return nil, fmt.Errorf("polygon %d building %d: %w", p.Index, i, err)
		}

		node.Random = rng.Float64()
		node.Sign = 1
		if node.Random < 0.5 {
			node.Sign = -1
		}
		node.OffsetX = math.Round(rng.Float64() * w / 2)
		node.OffsetY = math.Round(rng.Float64() * h / 2)

		dx, dy := sim.Phyllotaxis(i)
		node.X, node.Y = p.Center.X+dx, p.Center.Y+dy
		nodes = append(nodes, node)
	}
	return nodes, nil
}
