package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/stochastic"
)

func TestGeneratorCompanyWithinRanges(t *testing.T) {
	rules := testRules(t)
	g := NewGenerator(rules, nil, stochastic.NewSeeded(17))

	for i := 0; i < 100; i++ {
		c, err := g.Company("")
		require.NoError(t, err)
		spec, ok := rules.Sector(c.Sector)
		require.True(t, ok)

		assert.NotEmpty(t, c.Name)
		assert.GreaterOrEqual(t, c.Revenue, rules.Revenue.Min)
		assert.LessOrEqual(t, c.Revenue, rules.Revenue.Max)
		assert.GreaterOrEqual(t, c.EBITDAMargin, 0.05)
		assert.LessOrEqual(t, c.EBITDAMargin, rules.MaxOperatingMargin)
		assert.GreaterOrEqual(t, c.GrowthRate, rules.Growth.Min+spec.GrowthBoost)
		assert.LessOrEqual(t, c.GrowthRate, rules.Growth.Max+spec.GrowthBoost)
		assert.True(t, rules.Health.Contains(c.OperationalHealth))
		assert.InDelta(t, rules.RevenueVolatility, c.Volatility, rules.RevenueVolatility*0.2+1e-12)
	}
}

func TestGeneratorCompanyInSector(t *testing.T) {
	g := NewGenerator(testRules(t), nil, stochastic.Midpoint())

	c, err := g.Company("Technology")
	require.NoError(t, err)
	assert.Equal(t, "Technology", c.Sector)
	// margin midpoint 0.225 plus the sector's 0.05 tilt
	assert.InDelta(t, 0.275, c.EBITDAMargin, 1e-12)
	assert.InDelta(t, 0.05, c.GrowthRate, 1e-12)
	assert.InDelta(t, 55_000_000.0, c.Revenue, 1e-3)

	_, err = g.Company("Aerospace")
	assert.ErrorIs(t, err, ErrUnknownSector)
}

func TestDealPool(t *testing.T) {
	rules := testRules(t)
	m := NewMarket(rules, stochastic.Midpoint())
	g := NewGenerator(rules, nil, stochastic.NewSeeded(4))

	pool := g.DealPool(rules.DealsPerQuarter, m)

	require.Len(t, pool, rules.DealsPerQuarter)
	ids := map[string]bool{}
	for _, c := range pool {
		assert.Greater(t, c.CurrentValuation, 0.0)
		assert.False(t, c.Acquired())
		ids[c.ID] = true
	}
	assert.Len(t, ids, len(pool))
	assert.Empty(t, g.DealPool(0, m))
}
