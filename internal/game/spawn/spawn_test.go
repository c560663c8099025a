package spawn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fixedSource returns the queued values in order, then repeats the last one.
type fixedSource struct {
	vals []float64
	i    int
}

func (f *fixedSource) Float64() float64 {
	v := f.vals[f.i]
	if f.i < len(f.vals)-1 {
		f.i++
	}
	return v
}

func TestCryptoSourceRange(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSeededSourceDeterministic(t *testing.T) {
	a := NewSeededSource(7)
	b := NewSeededSource(7)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSeededSourceDiffersBySeed(t *testing.T) {
	a := NewSeededSource(1)
	b := NewSeededSource(2)
	same := true
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			same = false
		}
	}
	assert.False(t, same)
}

func TestSpawnerPositionMapsSource(t *testing.T) {
	s, err := NewSpawner(&fixedSource{vals: []float64{0, 0.5}}, DefaultBounds)
	require.NoError(t, err)

	pos := s.Position()
	assert.Equal(t, Vector{X: -5, Y: 1, Z: 0}, pos)
}

func TestNewSpawnerRejectsInvertedBounds(t *testing.T) {
	_, err := NewSpawner(NewSeededSource(1), Bounds{MinX: 1, MaxX: 0})
	assert.Error(t, err)
	_, err = NewSpawner(NewSeededSource(1), Bounds{MinZ: 1, MaxZ: 0})
	assert.Error(t, err)
}

func TestPropertySpawnWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		minX := rapid.Float64Range(-1000, 1000).Draw(rt, "minX")
		spanX := rapid.Float64Range(0, 1000).Draw(rt, "spanX")
		minZ := rapid.Float64Range(-1000, 1000).Draw(rt, "minZ")
		spanZ := rapid.Float64Range(0, 1000).Draw(rt, "spanZ")
		y := rapid.Float64Range(-10, 10).Draw(rt, "y")
		seed := rapid.Uint64().Draw(rt, "seed")

		bounds := Bounds{MinX: minX, MaxX: minX + spanX, Y: y, MinZ: minZ, MaxZ: minZ + spanZ}
		s, err := NewSpawner(NewSeededSource(seed), bounds)
		require.NoError(rt, err)

		for i := 0; i < 20; i++ {
			pos := s.Position()
			assert.GreaterOrEqual(rt, pos.X, bounds.MinX)
			assert.LessOrEqual(rt, pos.X, bounds.MaxX)
			assert.GreaterOrEqual(rt, pos.Z, bounds.MinZ)
			assert.LessOrEqual(rt, pos.Z, bounds.MaxZ)
			assert.Equal(rt, y, pos.Y)
		}
	})
}
