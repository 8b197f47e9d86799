package terrain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aquilax/go-perlin"

	"github.com/onnwee/metro-map/backend/internal/geometry"
)

// Layer names a per-site data layer.
type Layer string

const (
	Elevation    Layer = "elevation"
	Affluence    Layer = "affluence"
	Desirability Layer = "desirability"
	Wall         Layer = "wall"
	District     Layer = "district"
)

// DefaultWaterline marks elevation at or below it as water.
const DefaultWaterline = 0.2

// WallValue is the value a wall brush writes.
const WallValue = 0.5

// Perlin parameters for elevation seeding.
const (
	noiseAlpha  = 2.0
	noiseBeta   = 2.0
	noiseOctave = 3
	noiseScale  = 3.0
)

var (
	ErrUnknownLayer     = errors.New("terrain: unknown layer")
	ErrReadOnlyLayer    = errors.New("terrain: layer is read-only")
	ErrInvalidWaterline = errors.New("terrain: waterline must be within [0, 1]")
	ErrInvalidBrush     = errors.New("terrain: invalid brush")
	ErrSiteOutOfRange   = errors.New("terrain: site out of range")
)

// ParseLayer resolves a layer name, case-insensitively.
func ParseLayer(s string) (Layer, error) {
	switch l := Layer(strings.ToLower(strings.TrimSpace(s))); l {
	case Elevation, Affluence, Desirability, Wall, District:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLayer, s)
	}
}

// Site carries the editable values of one cell.
type Site struct {
	Index     int     `json:"index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Elevation float64 `json:"elevation"`
	Affluence float64 `json:"affluence"`
	Wall      float64 `json:"wall"`
}

// Brush is one pointer stroke over the canvas.
type Brush struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Increment float64 `json:"increment"`
	Increase  bool    `json:"increase"`
}

// Layers holds elevation, affluence and wall values for every site.
// It is not safe for concurrent use.
type Layers struct {
	sites     []Site
	waterline float64
}

// NewLayers seeds elevation from Perlin noise over the canvas.
func NewLayers(sites []geometry.Point, width, height float64, seed int64, waterline float64) (*Layers, error) {
	if waterline < 0 || waterline > 1 || math.IsNaN(waterline) {
		return nil, ErrInvalidWaterline
	}
	noise := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed)
	l := &Layers{
		sites:     make([]Site, len(sites)),
		waterline: waterline,
	}
	for i, p := range sites {
		nx, ny := 0.0, 0.0
		if width > 0 {
			nx = p.X / width * noiseScale
		}
		if height > 0 {
			ny = p.Y / height * noiseScale
		}
		l.sites[i] = Site{
			Index:     i,
			X:         p.X,
			Y:         p.Y,
			Elevation: clamp01((noise.Noise2D(nx, ny) + 1) / 2),
		}
	}
	return l, nil
}

// Len returns the number of sites.
func (l *Layers) Len() int {
	return len(l.sites)
}

// Site returns a copy of site i.
func (l *Layers) Site(i int) (Site, error) {
	if i < 0 || i >= len(l.sites) {
		return Site{}, fmt.Errorf("%w: %d", ErrSiteOutOfRange, i)
	}
	return l.sites[i], nil
}

func (l *Layers) Waterline() float64 {
	return l.waterline
}

// SetWaterline moves the waterline. Desirability follows immediately.
func (l *Layers) SetWaterline(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("%w: %g", ErrInvalidWaterline, v)
	}
	l.waterline = v
	return nil
}

// IsWater reports whether site i lies at or below the waterline.
func (l *Layers) IsWater(i int) bool {
	return l.sites[i].Elevation <= l.waterline
}

// DesirabilityOf derives desirability for site i: the mean of elevation and
// affluence, or 0 under water.
func (l *Layers) DesirabilityOf(i int) float64 {
	s := l.sites[i]
	if s.Elevation <= l.waterline {
		return 0
	}
	return (s.Elevation + s.Affluence) / 2
}

// Value returns the value of a numeric layer for site i.
func (l *Layers) Value(layer Layer, i int) (float64, error) {
	if i < 0 || i >= len(l.sites) {
		return 0, fmt.Errorf("%w: %d", ErrSiteOutOfRange, i)
	}
	switch layer {
	case Elevation:
		return l.sites[i].Elevation, nil
	case Affluence:
		return l.sites[i].Affluence, nil
	case Wall:
		return l.sites[i].Wall, nil
	case Desirability:
		return l.DesirabilityOf(i), nil
	default:
		return 0, fmt.Errorf("%w: %q is not numeric", ErrUnknownLayer, layer)
	}
}

// Values returns the numeric layer for every site in index order.
func (l *Layers) Values(layer Layer) ([]float64, error) {
	out := make([]float64, len(l.sites))
	for i := range l.sites {
		v, err := l.Value(layer, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Set writes a value directly, clamped to [0, 1].
func (l *Layers) Set(layer Layer, i int, v float64) error {
	if i < 0 || i >= len(l.sites) {
		return fmt.Errorf("%w: %d", ErrSiteOutOfRange, i)
	}
	switch layer {
	case Elevation:
		l.sites[i].Elevation = clamp01(v)
	case Affluence:
		l.sites[i].Affluence = clamp01(v)
	case Wall:
		l.sites[i].Wall = clamp01(v)
	case Desirability, District:
		return fmt.Errorf("%w: %s", ErrReadOnlyLayer, layer)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	return nil
}

// Apply paints one brush stroke and returns the indices of touched sites.
// Sites within the radius change by increment/100 scaled by 1 - d²/r²; the
// wall brush writes WallValue or 0 instead.
func (l *Layers) Apply(layer Layer, b Brush) ([]int, error) {
	switch layer {
	case Elevation, Affluence, Wall:
	case Desirability, District:
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyLayer, layer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	if !(b.Radius > 0) || math.IsInf(b.Radius, 0) || math.IsNaN(b.Increment) {
		return nil, fmt.Errorf("%w: radius %g", ErrInvalidBrush, b.Radius)
	}

	r2 := b.Radius * b.Radius
	var touched []int
	for i := range l.sites {
		s := &l.sites[i]
		dx, dy := b.X-s.X, b.Y-s.Y
		d2 := dx*dx + dy*dy
		if d2 >= r2 {
			continue
		}
		delta := b.Increment / 100 * (1 - d2/r2)
		switch layer {
		case Wall:
			if b.Increase {
				s.Wall = WallValue
			} else {
				s.Wall = 0
			}
		case Elevation:
			s.Elevation = clamp01(s.Elevation + signed(delta, b.Increase))
		case Affluence:
			s.Affluence = clamp01(s.Affluence + signed(delta, b.Increase))
		}
		touched = append(touched, i)
	}
	return touched, nil
}

// Class names the district band a desirability value falls into.
type Class string

const (
	ClassRich   Class = "rich"
	ClassMedium Class = "medium"
	ClassPoor   Class = "poor"
)

// Classify maps desirability to a band: >= 0.7 rich, <= 0.3 poor, medium
// in between.
func Classify(desirability float64) Class {
	switch {
	case desirability >= 0.7:
		return ClassRich
	case desirability <= 0.3:
		return ClassPoor
	default:
		return ClassMedium
	}
}

func signed(v float64, increase bool) float64 {
	if increase {
		return v
	}
	return -v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
