package city

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DistrictType classifies a polygon and drives its building cluster.
type DistrictType string

const (
	Rich   DistrictType = "rich"
	Medium DistrictType = "medium"
	Poor   DistrictType = "poor"
	Plaza  DistrictType = "plaza"
	Empty  DistrictType = "empty"
)

// randomTypes are the types an inner polygon may start with.
var randomTypes = []DistrictType{Rich, Medium, Poor, Plaza}

// AllTypes lists every district type.
var AllTypes = []DistrictType{Rich, Medium, Poor, Plaza, Empty}

var (
	ErrInvalidType    = errors.New("city: invalid district type")
	ErrInvalidProfile = errors.New("city: invalid district profile")
)

// ParseDistrictType resolves a type name, case-insensitively.
func ParseDistrictType(s string) (DistrictType, error) {
	t := DistrictType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Color is the fill the renderer uses for the district.
func (t DistrictType) Color() string {
	switch t {
	case Rich:
		return "blue"
	case Medium:
		return "red"
	case Poor:
		return "green"
	case Plaza:
		return "yellow"
	default:
		return "white"
	}
}

// Profile sizes the building cluster of one district type.
//
// For computed counts, a central polygon gets
// round(U*round(h/MoreDivisor) + MoreBase) buildings and an outer one
// round(U*LessSpread) + LessBase. Fixed profiles use FixedMore/FixedLess.
// Building sides are round(U*SizeJitter + side/SizeDivisor), with side
// divided by the building count first when PerBuilding is set.
type Profile struct {
	Fixed       bool    `yaml:"fixed" json:"fixed"`
	FixedMore   int     `yaml:"fixed_more" json:"fixed_more"`
	FixedLess   int     `yaml:"fixed_less" json:"fixed_less"`
	MoreDivisor float64 `yaml:"more_divisor" json:"more_divisor"`
	MoreBase    float64 `yaml:"more_base" json:"more_base"`
	LessSpread  float64 `yaml:"less_spread" json:"less_spread"`
	LessBase    float64 `yaml:"less_base" json:"less_base"`
	SizeJitter  float64 `yaml:"size_jitter" json:"size_jitter"`
	SizeDivisor float64 `yaml:"size_divisor" json:"size_divisor"`
	PerBuilding bool    `yaml:"per_building" json:"per_building"`
}

// Profiles maps every district type to its cluster profile.
type Profiles map[DistrictType]Profile

// DefaultProfiles returns the stock cluster sizing.
func DefaultProfiles() Profiles {
	return Profiles{
		Rich:   {MoreDivisor: 35, MoreBase: 3, LessSpread: 1, LessBase: 3, SizeJitter: 10, SizeDivisor: 10},
		Medium: {MoreDivisor: 25, MoreBase: 4, LessSpread: 2, LessBase: 3, SizeJitter: 10, SizeDivisor: 20},
		Poor:   {MoreDivisor: 20, MoreBase: 5, LessSpread: 3, LessBase: 3, SizeJitter: 10, SizeDivisor: 30},
		Plaza:  {Fixed: true, FixedMore: 3, FixedLess: 1, SizeJitter: 10, SizeDivisor: 2.8, PerBuilding: true},
		Empty:  {Fixed: true},
	}
}

// Validate checks that every type has a usable profile.
func (ps Profiles) Validate() error {
	for _, t := range AllTypes {
		p, ok := ps[t]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidProfile, t)
		}
		if err := p.validate(); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	return nil
}

func (p Profile) validate() error {
	if p.Fixed {
		if p.FixedMore < 0 || p.FixedLess < 0 {
			return fmt.Errorf("%w: negative fixed count", ErrInvalidProfile)
		}
	} else if !(p.MoreDivisor > 0) || p.MoreBase < 0 || p.LessSpread < 0 || p.LessBase < 0 {
		return fmt.Errorf("%w: bad count parameters", ErrInvalidProfile)
	}
	if p.maxCount() > 0 && !(p.SizeDivisor > 0) {
		return fmt.Errorf("%w: size_divisor must be positive", ErrInvalidProfile)
	}
	if p.SizeJitter < 0 {
		return fmt.Errorf("%w: negative size_jitter", ErrInvalidProfile)
	}
	return nil
}

func (p Profile) maxCount() int {
	if p.Fixed {
		return max(p.FixedMore, p.FixedLess)
	}
	return 1
}

// count draws both candidate counts and returns the one selected by more.
func (p Profile) count(rng *rand.Rand, height float64, more bool) int {
	if p.Fixed {
		if more {
			return p.FixedMore
		}
		return p.FixedLess
	}
	m := int(math.Round(rng.Float64()*math.Round(height/p.MoreDivisor) + p.MoreBase))
	l := int(math.Round(rng.Float64()*p.LessSpread) + p.LessBase)
	if more {
		return m
	}
	return l
}

// side draws one building side length, floored to 1.
func (p Profile) side(rng *rand.Rand, extent float64, n int) float64 {
	if p.PerBuilding && n > 0 {
		extent /= float64(n)
	}
	return math.Max(1, math.Round(rng.Float64()*p.SizeJitter+extent/p.SizeDivisor))
}

// LoadProfiles reads per-type overrides from a YAML file on top of the
// defaults. Only the fields present in the file change.
//
//	rich:
//	  more_divisor: 30
//	plaza:
//	  fixed_more: 4
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes YAML overrides on top of the defaults.
func ParseProfiles(data []byte) (Profiles, error) {
	profiles := DefaultProfiles()

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	for name, node := range raw {
		t, err := ParseDistrictType(name)
		if err != nil {
			return nil, err
		}
		p := profiles[t]
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode %s profile: %w", t, err)
		}
		profiles[t] = p
	}
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	return profiles, nil
}
