package stochastic

import "sync"

// Scripted is a deterministic Source. Queued values are consumed first; once a
// queue is empty the matching default is used.
//
// Uniform draws are expressed as a fraction of the interval, Normal draws as a
// z-score, so one script works for any bounds.
type Scripted struct {
	mu sync.Mutex

	Floats []float64
	Fracs  []float64
	Zs     []float64
	Ints   []int
	Float  float64
	Frac   float64
	Z      float64
	Int    int
	Calls  int
}

// Midpoint returns a source that always lands in the middle: Float64 0.5,
// uniform midpoints and zero gaussian noise.
func Midpoint() *Scripted {
	return &Scripted{Float: 0.5, Frac: 0.5}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	return popOr(&s.Floats, s.Float)
}

func (s *Scripted) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + popOr(&s.Fracs, s.Frac)*(hi-lo)
}

func (s *Scripted) Normal(mean, sd float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	z := popOr(&s.Zs, s.Z)
	if sd <= 0 {
		return mean
	}
	return mean + z*sd
}

func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if n <= 0 {
		return 0
	}
	v := popOr(&s.Ints, s.Int)
	if v < 0 {
		v = 0
	}
	return v % n
}

func popOr[T any](q *[]T, fallback T) T {
	if len(*q) == 0 {
		return fallback
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v
}
