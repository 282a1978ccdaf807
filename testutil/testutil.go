package testutil

import (
	"math/rand"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Match is one ground-truth result of a brute-force scan.
type Match struct {
	Index  int32
	DistSq float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0,1).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Point returns a point uniformly distributed in [0, 1)^3.
func (r *RNG) Point() mgl32.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return mgl32.Vec3{r.rand.Float32(), r.rand.Float32(), r.rand.Float32()}
}

// UniformPoints generates num points uniformly distributed in the unit cube.
func (r *RNG) UniformPoints(num int) []mgl32.Vec3 {
	return r.UniformBoxPoints(num, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
}

// UniformBoxPoints generates num points uniformly distributed in [lo, hi).
func (r *RNG) UniformBoxPoints(num int, lo, hi mgl32.Vec3) []mgl32.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := hi.Sub(lo)
	points := make([]mgl32.Vec3, num)
	for i := range points {
		for a := 0; a < 3; a++ {
			points[i][a] = lo[a] + r.rand.Float32()*span[a]
		}
	}
	return points
}

// ClusteredPoints generates num points scattered with Gaussian noise around
// clusters centroids drawn from the unit cube.
// Useful for testing unbalanced splits.
func (r *RNG) ClusteredPoints(num, clusters int, spread float32) []mgl32.Vec3 {
	centroids := r.UniformPoints(clusters)

	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]mgl32.Vec3, num)
	for i := range points {
		c := centroids[i%clusters]
		for a := 0; a < 3; a++ {
			points[i][a] = c[a] + float32(r.rand.NormFloat64())*spread
		}
	}
	return points
}

// DuplicatePoints returns num copies of p. All of them collapse into a
// single zero-radius bounding sphere.
func DuplicatePoints(num int, p mgl32.Vec3) []mgl32.Vec3 {
	points := make([]mgl32.Vec3, num)
	for i := range points {
		points[i] = p
	}
	return points
}

// BruteForceWithin returns every point within radius of query, skipping the
// point at index skip, sorted by index.
func BruteForceWithin(points []mgl32.Vec3, query mgl32.Vec3, radius float32, skip int32) []int32 {
	radiusSq := radius * radius

	var out []int32
	for i, p := range points {
		if int32(i) == skip {
			continue
		}
		d := p.Sub(query)
		if d.Dot(d) <= radiusSq {
			out = append(out, int32(i))
		}
	}
	return out
}

// BruteForceNearest returns the k points closest to query, skipping the point
// at index skip, ordered by distance and then by index.
func BruteForceNearest(points []mgl32.Vec3, query mgl32.Vec3, k int, skip int32) []Match {
	matches := make([]Match, 0, len(points))
	for i, p := range points {
		if int32(i) == skip {
			continue
		}
		d := p.Sub(query)
		matches = append(matches, Match{Index: int32(i), DistSq: d.Dot(d)})
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.DistSq != b.DistSq {
			if a.DistSq < b.DistSq {
				return -1
			}
			return 1
		}
		return int(a.Index - b.Index)
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
