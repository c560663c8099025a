package spawn

import (
	"fmt"
)

// Vector is a spawn coordinate triple.
type Vector struct {
	X, Y, Z float64
}

// Bounds is the region a player may spawn into. Y is fixed.
type Bounds struct {
	MinX, MaxX float64
	Y          float64
	MinZ, MaxZ float64
}

// DefaultBounds is the 10x10 square around the origin at ground height 1.
var DefaultBounds = Bounds{MinX: -5, MaxX: 5, Y: 1, MinZ: -5, MaxZ: 5}

// Validate checks that each horizontal range is non-inverted.
func (b Bounds) Validate() error {
	if b.MinX > b.MaxX {
		return fmt.Errorf("spawn bounds: min_x %v exceeds max_x %v", b.MinX, b.MaxX)
	}
	if b.MinZ > b.MaxZ {
		return fmt.Errorf("spawn bounds: min_z %v exceeds max_z %v", b.MinZ, b.MaxZ)
	}
	return nil
}

// Spawner draws spawn positions from a Source.
type Spawner struct {
	src    Source
	bounds Bounds
}

// NewSpawner creates a Spawner.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a Spawner, or an error if bounds are inverted.
func NewSpawner(src Source, bounds Bounds) (*Spawner, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &Spawner{src: src, bounds: bounds}, nil
}

// Position draws x and z independently and uniformly from their ranges.
//
// Postcondition: MinX <= X <= MaxX, MinZ <= Z <= MaxZ, Y == bounds.Y.
func (s *Spawner) Position() Vector {
	return Vector{
		X: lerp(s.bounds.MinX, s.bounds.MaxX, s.src.Float64()),
		Y: s.bounds.Y,
		Z: lerp(s.bounds.MinZ, s.bounds.MaxZ, s.src.Float64()),
	}
}

func lerp(lo, hi, t float64) float64 {
	v := lo + (hi-lo)*t
	// Rounding can push lo+(hi-lo)*t a hair past hi for extreme ranges.
	if v > hi {
		return hi
	}
	return v
}
