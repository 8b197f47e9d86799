package force

import "math/rand"

// JigglePolicy breaks ties between coincident points. It returns a tiny
// offset added to a zero coordinate difference.
type JigglePolicy func() float64

// ZeroJiggle keeps the simulation deterministic; coincident pairs then
// contribute nothing.
func ZeroJiggle() float64 {
	return 0
}

// RandomJiggle returns offsets in (-5e-7, 5e-7) drawn from rng.
func RandomJiggle(rng *rand.Rand) JigglePolicy {
	return func() float64 {
		return (rng.Float64() - 0.5) * 1e-6
	}
}

func (j JigglePolicy) next() float64 {
	if j == nil {
		return 0
	}
	return j()
}
