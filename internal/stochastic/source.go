// Package stochastic holds the random source shared by the simulation and the
// time-series processes built on it.
package stochastic

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source is the draw surface the simulation depends on. Tests swap in
// scripted implementations to force specific outcomes.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	Uniform(lo, hi float64) float64
	// Normal returns mean when sd <= 0.
	Normal(mean, sd float64) float64
	// IntN returns a value in [0, n); n <= 0 yields 0.
	IntN(n int) int
}

// Rand is a goroutine-safe Source backed by a PCG generator.
type Rand struct {
	mu  sync.Mutex
	pcg *rand.PCG
	rng *rand.Rand
}

// New returns an unseeded source when seed is nil.
func New(seed *int64) *Rand {
	if seed == nil {
		return newRand(rand.Uint64(), rand.Uint64())
	}
	return NewSeeded(*seed)
}

func NewSeeded(seed int64) *Rand {
	return newRand(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
}

func newRand(a, b uint64) *Rand {
	pcg := rand.NewPCG(a, b)
	return &Rand{pcg: pcg, rng: rand.New(pcg)}
}

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Rand) Uniform(lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return distuv.Uniform{Min: lo, Max: hi, Src: r.pcg}.Rand()
}

func (r *Rand) Normal(mean, sd float64) float64 {
	if sd <= 0 {
		return mean
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return distuv.Normal{Mu: mean, Sigma: sd, Src: r.pcg}.Rand()
}

func (r *Rand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Chance reports whether a draw from src falls below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[src.IntN(len(items))]
}

// Shuffle permutes items in place (Fisher-Yates).
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
