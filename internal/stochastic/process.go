package stochastic

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RandomWalk returns steps+1 points starting at initial with N(drift, vol) increments.
func RandomWalk(src Source, initial, drift, vol float64, steps int) []float64 {
	out := make([]float64, 0, steps+1)
	out = append(out, initial)
	cur := initial
	for i := 0; i < steps; i++ {
		cur += src.Normal(drift, vol)
		out = append(out, cur)
	}
	return out
}

// GBM returns a geometric Brownian motion path. Values stay strictly positive
// for a positive start.
func GBM(src Source, initial, drift, vol, dt float64, steps int) []float64 {
	if dt <= 0 {
		dt = 1
	}
	out := make([]float64, 0, steps+1)
	out = append(out, initial)
	cur := initial
	mu := (drift - 0.5*vol*vol) * dt
	sigma := vol * math.Sqrt(dt)
	for i := 0; i < steps; i++ {
		cur *= math.Exp(mu + sigma*src.Normal(0, 1))
		out = append(out, cur)
	}
	return out
}

// OUStep advances x one discrete Ornstein-Uhlenbeck step toward target.
func OUStep(src Source, x, target, speed, vol float64) float64 {
	return x + speed*(target-x) + src.Normal(0, vol)
}

// MeanReverting returns an Ornstein-Uhlenbeck path of steps+1 points.
func MeanReverting(src Source, initial, target, speed, vol, dt float64, steps int) []float64 {
	if dt <= 0 {
		dt = 1
	}
	out := make([]float64, 0, steps+1)
	out = append(out, initial)
	cur := initial
	for i := 0; i < steps; i++ {
		cur = OUStep(src, cur, target, speed*dt, vol*math.Sqrt(dt))
		out = append(out, cur)
	}
	return out
}

// AddNoise scales value by (1 + N(0, vol)).
func AddNoise(src Source, value, vol float64) float64 {
	return value * (1 + src.Normal(0, vol))
}

// GrowthShock adds a U(-0.2, 0.2) shock to base with probability prob.
func GrowthShock(src Source, base, prob float64) float64 {
	if !Chance(src, prob) {
		return base
	}
	return base + src.Uniform(-0.20, 0.20)
}

// MarketCycle returns quarterly growth rates following a sine cycle of
// cycleLength quarters with a 3% amplitude plus N(0, 0.02) noise.
func MarketCycle(src Source, quarters int, base float64, cycleLength int) []float64 {
	if cycleLength <= 0 {
		cycleLength = 16
	}
	out := make([]float64, 0, quarters)
	for q := 0; q < quarters; q++ {
		phase := 2 * math.Pi * float64(q) / float64(cycleLength)
		out = append(out, base+0.03*math.Sin(phase)+src.Normal(0, 0.02))
	}
	return out
}

// CorrelatedRandomWalk returns one walk per initial value. Every step mixes a
// shared shock with an idiosyncratic one so pairwise increment correlation is
// approximately correlation.
func CorrelatedRandomWalk(src Source, initials []float64, correlation, drift, vol float64, steps int) [][]float64 {
	rho := math.Max(-1, math.Min(1, correlation))
	idio := math.Sqrt(1 - rho*rho)
	series := make([][]float64, len(initials))
	for i, v := range initials {
		series[i] = make([]float64, 1, steps+1)
		series[i][0] = v
	}
	for s := 0; s < steps; s++ {
		common := src.Normal(0, 1)
		for i := range series {
			shock := rho*common + idio*src.Normal(0, 1)
			last := series[i][len(series[i])-1]
			series[i] = append(series[i], last+drift+vol*shock)
		}
	}
	return series
}

// Stats summarises a sample.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// PathStats summarises the final value of each path.
func PathStats(paths [][]float64) Stats {
	finals := make([]float64, 0, len(paths))
	for _, p := range paths {
		if len(p) > 0 {
			finals = append(finals, p[len(p)-1])
		}
	}
	return Summarize(finals)
}

func Summarize(xs []float64) Stats {
	switch len(xs) {
	case 0:
		return Stats{}
	case 1:
		return Stats{Mean: xs[0], Min: xs[0], Max: xs[0]}
	}
	mean, sd := stat.MeanStdDev(xs, nil)
	return Stats{Mean: mean, StdDev: sd, Min: floats.Min(xs), Max: floats.Max(xs)}
}
