package city

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/metro-map/backend/internal/metrics"
	"github.com/onnwee/metro-map/backend/internal/terrain"
	"github.com/onnwee/metro-map/backend/internal/tracing"
)

// LayerView is one data layer over every polygon, in polygon order.
// Numeric layers fill Values, the district layer fills Types.
type LayerView struct {
	Layer     terrain.Layer  `json:"layer"`
	Waterline float64        `json:"waterline"`
	Values    []float64      `json:"values,omitempty"`
	Types     []DistrictType `json:"types,omitempty"`
	Water     []bool         `json:"water"`
}

// BrushResult reports what one brush stroke changed.
type BrushResult struct {
	Touched []int `json:"touched"`
	Retyped []int `json:"retyped"`
}

// Layer returns the values of one layer.
func (c *City) Layer(layer terrain.Layer) (LayerView, error) {
	layer, err := terrain.ParseLayer(string(layer))
	if err != nil {
		return LayerView{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := LayerView{
		Layer:     layer,
		Waterline: c.layers.Waterline(),
		Water:     make([]bool, c.layers.Len()),
	}
	for i := range v.Water {
		v.Water[i] = c.layers.IsWater(i)
	}
	if layer == terrain.District {
		v.Types = make([]DistrictType, len(c.polygons))
		for i, p := range c.polygons {
			v.Types[i] = p.Type
		}
		return v, nil
	}
	if v.Values, err = c.layers.Values(layer); err != nil {
		return LayerView{}, err
	}
	return v, nil
}

// Brush paints one stroke on an editable layer. Elevation and affluence
// strokes retype every touched polygon whose desirability class changed.
func (c *City) Brush(ctx context.Context, layer terrain.Layer, b terrain.Brush) (BrushResult, error) {
	ctx, span := tracing.StartSpan(ctx, "city.brush")
	defer span.End()
	span.SetAttributes(attribute.String("layer", string(layer)), attribute.Float64("radius", b.Radius))

	layer, err := terrain.ParseLayer(string(layer))
	if err != nil {
		return BrushResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	touched, err := c.layers.Apply(layer, b)
	if err != nil {
		return BrushResult{}, err
	}
	metrics.LayerBrushStrokes.WithLabelValues(string(layer)).Inc()
	res := BrushResult{Touched: touched, Retyped: []int{}}
	if res.Touched == nil {
		res.Touched = []int{}
	}
	if len(touched) > 0 {
		c.version++
	}
	if layer != terrain.Elevation && layer != terrain.Affluence {
		return res, nil
	}

	for _, i := range touched {
		p := c.polygons[i]
		t := c.desiredType(i)
		if t == p.Type {
			continue
		}
		if err := c.retype(p, t, "brush"); err != nil {
			span.RecordError(err)
			return res, err
		}
		res.Retyped = append(res.Retyped, i)
	}
	if len(res.Retyped) > 0 {
		c.log.DebugContext(ctx, "Brush retyped polygons", "layer", layer, "retyped", len(res.Retyped))
	}
	return res, nil
}

// desiredType classifies polygon i by desirability. A polygon becomes a
// plaza when it and its neighbours cover exactly poor, medium and rich.
func (c *City) desiredType(i int) DistrictType {
	own := classType(terrain.Classify(c.layers.DesirabilityOf(i)))

	seen := map[DistrictType]struct{}{own: {}}
	for _, j := range c.polygons[i].Neighbors {
		seen[c.polygons[j].Type] = struct{}{}
	}
	_, poor := seen[Poor]
	_, medium := seen[Medium]
	_, rich := seen[Rich]
	if len(seen) == 3 && poor && medium && rich {
		return Plaza
	}
	return own
}

func classType(cl terrain.Class) DistrictType {
	switch cl {
	case terrain.ClassRich:
		return Rich
	case terrain.ClassPoor:
		return Poor
	default:
		return Medium
	}
}

// SetWaterline moves the waterline of every layer.
func (c *City) SetWaterline(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.layers.SetWaterline(v); err != nil {
		return err
	}
	c.version++
	return nil
}
