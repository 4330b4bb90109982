package stochastic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededSourcesRepeat(t *testing.T) {
	a := NewSeeded(7)
	b := NewSeeded(7)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Normal(0, 1), b.Normal(0, 1))
		require.Equal(t, a.Uniform(2, 3), b.Uniform(2, 3))
		require.Equal(t, a.IntN(10), b.IntN(10))
	}
	seed := int64(7)
	c := New(&seed)
	assert.Equal(t, NewSeeded(7).Float64(), c.Float64())
}

func TestRandBounds(t *testing.T) {
	r := NewSeeded(1)
	for i := 0; i < 1000; i++ {
		u := r.Uniform(0.6, 0.8)
		require.GreaterOrEqual(t, u, 0.6)
		require.Less(t, u, 0.8)
		f := r.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
		n := r.IntN(5)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 5)
	}
	assert.Equal(t, 3.0, r.Normal(3, 0))
	assert.Equal(t, 3.0, r.Normal(3, -1))
	assert.Equal(t, 2.0, r.Uniform(2, 2))
	assert.Equal(t, 0, r.IntN(0))
	swapped := r.Uniform(5, 1)
	assert.True(t, swapped >= 1 && swapped < 5)
}

func TestRandomWalkLength(t *testing.T) {
	path := RandomWalk(NewSeeded(3), 100, 0.5, 1, 12)
	require.Len(t, path, 13)
	assert.Equal(t, 100.0, path[0])
}

func TestRandomWalkScriptedIsDrift(t *testing.T) {
	path := RandomWalk(Midpoint(), 10, 2, 5, 3)
	assert.Equal(t, []float64{10, 12, 14, 16}, path)
}

func TestGBMStaysPositive(t *testing.T) {
	src := &Scripted{Z: -50}
	path := GBM(src, 100, 0.01, 0.5, 1, 20)
	for _, v := range path {
		require.Greater(t, v, 0.0)
	}
	expected := 100 * math.Exp(0.01-0.125)
	assert.InDelta(t, expected, GBM(Midpoint(), 100, 0.01, 0.5, 1, 1)[1], 1e-9)
}

func TestMeanRevertingConvergesWithoutNoise(t *testing.T) {
	path := MeanReverting(Midpoint(), 2, 1, 0.5, 0.1, 1, 30)
	assert.InDelta(t, 1.0, path[len(path)-1], 1e-6)
	assert.InDelta(t, 1.1, OUStep(Midpoint(), 1.2, 1.0, 0.5, 0.03), 1e-12)
}

func TestAddNoiseAndGrowthShock(t *testing.T) {
	assert.InDelta(t, 110.0, AddNoise(&Scripted{Z: 1}, 100, 0.1), 1e-9)

	never := &Scripted{Float: 0.99}
	assert.Equal(t, 0.02, GrowthShock(never, 0.02, 0.1))

	always := &Scripted{Float: 0.0, Frac: 1.0}
	assert.InDelta(t, 0.22, GrowthShock(always, 0.02, 0.1), 1e-12)
}

func TestMarketCycleShape(t *testing.T) {
	rates := MarketCycle(Midpoint(), 16, 0.02, 16)
	require.Len(t, rates, 16)
	assert.InDelta(t, 0.02, rates[0], 1e-12)
	assert.InDelta(t, 0.05, rates[4], 1e-12)
	assert.InDelta(t, -0.01, rates[12], 1e-12)
}

func TestCorrelatedRandomWalkPerfectCorrelation(t *testing.T) {
	series := CorrelatedRandomWalk(NewSeeded(11), []float64{0, 0, 0}, 1, 0, 1, 25)
	require.Len(t, series, 3)
	for i := range series {
		require.Len(t, series[i], 26)
	}
	for step := range series[0] {
		assert.InDelta(t, series[0][step], series[1][step], 1e-9)
		assert.InDelta(t, series[0][step], series[2][step], 1e-9)
	}
}

func TestPathStats(t *testing.T) {
	st := PathStats([][]float64{{0, 1}, {0, 3}, {}, {0, 5}})
	assert.InDelta(t, 3.0, st.Mean, 1e-12)
	assert.InDelta(t, 2.0, st.StdDev, 1e-12)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 5.0, st.Max)

	assert.Equal(t, Stats{}, Summarize(nil))
	assert.Equal(t, Stats{Mean: 4, Min: 4, Max: 4}, Summarize([]float64{4}))
}

func TestPickAndShuffle(t *testing.T) {
	src := &Scripted{Ints: []int{2}}
	assert.Equal(t, "c", Pick(src, []string{"a", "b", "c"}))
	assert.Equal(t, "", Pick(src, []string(nil)))

	items := []int{1, 2, 3, 4, 5}
	Shuffle(NewSeeded(5), items)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, items)
}

func TestScriptedQueues(t *testing.T) {
	s := &Scripted{Floats: []float64{0.1}, Float: 0.9, Zs: []float64{2}, Fracs: []float64{0.25}}
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.9, s.Float64())
	assert.Equal(t, 5.0, s.Normal(1, 2))
	assert.Equal(t, 1.0, s.Normal(1, 2))
	assert.Equal(t, 2.5, s.Uniform(2, 4))
	assert.Equal(t, 5, s.Calls)
}
