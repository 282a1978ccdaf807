package testutil

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformPoints(t *testing.T) {
	rng := NewRNG(4711)

	points := rng.UniformPoints(64)

	require.Len(t, points, 64)
	for _, p := range points {
		for a := 0; a < 3; a++ {
			assert.GreaterOrEqual(t, p[a], float32(0))
			assert.Less(t, p[a], float32(1))
		}
	}
}

func TestUniformBoxPoints(t *testing.T) {
	rng := NewRNG(4711)
	lo, hi := mgl32.Vec3{-10, 5, 0}, mgl32.Vec3{-5, 6, 100}

	for _, p := range rng.UniformBoxPoints(64, lo, hi) {
		for a := 0; a < 3; a++ {
			assert.GreaterOrEqual(t, p[a], lo[a])
			assert.LessOrEqual(t, p[a], hi[a])
		}
	}
}

func TestClusteredPoints(t *testing.T) {
	rng := NewRNG(4711)

	points := rng.ClusteredPoints(100, 5, 0.01)

	assert.Len(t, points, 100)
	// Points i and i+5 share a centroid.
	assert.Less(t, points[0].Sub(points[5]).Len(), float32(0.2))
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	p1 := rng.UniformPoints(4)

	rng.Reset()
	p2 := rng.UniformPoints(4)

	assert.Equal(t, p1, p2)
}

func TestBruteForceWithin(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}

	assert.Equal(t, []int32{1}, BruteForceWithin(points, points[0], 1.5, 0))
	assert.Equal(t, []int32{0, 1}, BruteForceWithin(points, points[0], 1.5, -1))
	assert.Empty(t, BruteForceWithin(points, mgl32.Vec3{10, 10, 10}, 1, -1))
}

func TestBruteForceNearest(t *testing.T) {
	points := []mgl32.Vec3{{3, 0, 0}, {1, 0, 0}, {0, 2, 0}, {0, 0, 1}}

	got := BruteForceNearest(points, mgl32.Vec3{}, 3, -1)

	assert.Equal(t, []Match{{Index: 1, DistSq: 1}, {Index: 3, DistSq: 1}, {Index: 2, DistSq: 4}}, got)
	assert.Len(t, BruteForceNearest(points, mgl32.Vec3{}, 10, 1), 3)
}

func TestDuplicatePoints(t *testing.T) {
	p := mgl32.Vec3{1, 2, 3}
	points := DuplicatePoints(3, p)
	assert.Equal(t, []mgl32.Vec3{p, p, p}, points)
}
