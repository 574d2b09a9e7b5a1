// Package learn holds the statistical and machine-learning primitives the
// training pipeline is built from: seeded sampling, feature encoders, KNN
// imputation, random oversampling, a gradient-boosted tree classifier and
// the metrics used to evaluate it.
package learn

import (
	"gonum.org/v1/gonum/mathext/prng"
)

// RandomState is a seeded Mersenne Twister stream. Bounded integers use
// masked rejection sampling so that a given seed yields the same sequence
// of indices as the classic MT19937 "legacy" generators.
type RandomState struct {
	src *prng.MT19937
}

// NewRandomState returns a stream seeded with seed.
func NewRandomState(seed uint64) *RandomState {
	src := prng.NewMT19937()
	src.Seed(seed)
	return &RandomState{src: src}
}

// interval returns a uniform integer in [0, max].
func (r *RandomState) interval(max uint32) uint32 {
	if max == 0 {
		return 0
	}
	mask := max
	mask |= mask >> 1
	mask |= mask >> 2
	mask |= mask >> 4
	mask |= mask >> 8
	mask |= mask >> 16
	for {
		v := r.src.Uint32() & mask
		if v <= max {
			return v
		}
	}
}

// Intn returns a uniform integer in [0, n). It panics if n <= 0.
func (r *RandomState) Intn(n int) int {
	if n <= 0 {
		panic("learn: Intn called with non-positive n")
	}
	return int(r.interval(uint32(n - 1)))
}

// Permutation returns a random permutation of [0, n).
func (r *RandomState) Permutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i >= 1; i-- {
		j := int(r.interval(uint32(i)))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}
