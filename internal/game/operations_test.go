package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/stochastic"
)

func TestCostCutting(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)

	res, err := CostCutting(c, 0.5, rules, stochastic.Midpoint())
	require.NoError(t, err)

	assert.InDelta(t, 0.2375, c.EBITDAMargin, 1e-12)
	assert.InDelta(t, 0.01, c.GrowthRate, 1e-12)
	assert.InDelta(t, 0.925, c.OperationalHealth, 1e-12)
	assert.InDelta(t, 0.0375, res.MarginChange, 1e-12)
	assert.False(t, res.MoraleHit)
	assert.Zero(t, res.ReputationDelta)
	assert.Zero(t, res.Cost)
}

func TestCostCuttingDeepCuts(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	src := &stochastic.Scripted{Frac: 0.5, Float: 0}

	res, err := CostCutting(c, 0.9, rules, src)
	require.NoError(t, err)

	assert.InDelta(t, 0.2675, c.EBITDAMargin, 1e-12)
	assert.InDelta(t, -0.008, c.GrowthRate, 1e-12)
	assert.InDelta(t, 0.775, c.OperationalHealth, 1e-12)
	assert.True(t, res.MoraleHit)
	assert.Equal(t, -0.02, res.ReputationDelta)
}

func TestCostCuttingMarginCap(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.49)

	_, err := CostCutting(c, 1, rules, stochastic.Midpoint())
	require.NoError(t, err)
	assert.Equal(t, rules.MaxOperatingMargin, c.EBITDAMargin)
}

func TestCostCuttingRejectsIntensity(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	for _, i := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := CostCutting(c, i, rules, stochastic.Midpoint())
		assert.ErrorIs(t, err, ErrInvalidIntensity)
	}
	assert.Equal(t, 0.2, c.EBITDAMargin)
}

func TestCapitalInvestment(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	c.OperationalHealth = 0.6

	res, err := CapitalInvestment(c, 10, rules, stochastic.Midpoint())
	require.NoError(t, err)

	assert.InDelta(t, 0.025, c.GrowthRate, 1e-12)
	assert.InDelta(t, 0.61, c.OperationalHealth, 1e-12)
	assert.Equal(t, 10.0, res.Cost)
	assert.InDelta(t, 1.0, res.Effectiveness, 1e-12)

	_, err = CapitalInvestment(c, 0, rules, stochastic.Midpoint())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCapitalInvestmentBoostIsCapped(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(0, 0.2)

	_, err := CapitalInvestment(c, 1_000, rules, stochastic.Midpoint())
	require.NoError(t, err)
	assert.InDelta(t, 0.02+rules.CapexBoostMaxImpact, c.GrowthRate, 1e-12)
	assert.Equal(t, 1.0, c.OperationalHealth)
}

func TestReplaceManagement(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	c.OperationalHealth = 0.6
	next := NewManager("Mira Chen", 0.9, 0.2, 0.8)

	res, err := ReplaceManagement(c, next, 10_000_000, rules, stochastic.Midpoint())
	require.NoError(t, err)

	assert.Equal(t, next, c.Manager)
	assert.Equal(t, rules.ManagerReplacementCost, res.Cost)
	assert.InDelta(t, 0.006, c.GrowthRate, 1e-12)
	assert.InDelta(t, 0.11, c.Volatility, 1e-12)
	assert.InDelta(t, 0.72, c.OperationalHealth, 1e-12)
	require.NotNil(t, res.PreviousManager)
	assert.Equal(t, "Ada Stone", res.PreviousManager.Name)
	assert.False(t, res.DifficultExit)
}

func TestReplaceManagementDifficultExit(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	c.Manager = NewManager("Rex Hale", 0.4, 0.5, 0.2)
	src := &stochastic.Scripted{Frac: 0.5, Float: 0}

	res, err := ReplaceManagement(c, steadyManager(), 10_000_000, rules, src)
	require.NoError(t, err)

	assert.True(t, res.DifficultExit)
	assert.InDelta(t, rules.ManagerReplacementCost*1.5, res.Cost, 1e-6)
	assert.Equal(t, -0.05, res.ReputationDelta)
}

func TestReplaceManagementOverBudget(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	prev := c.Manager

	_, err := ReplaceManagement(c, NewManager("Mira Chen", 0.9, 0.2, 0.8), 1_000_000, rules, stochastic.Midpoint())

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, prev, c.Manager)
	assert.Equal(t, 0.02, c.GrowthRate)
}

func TestGrowthStrategyExpand(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	c.OperationalHealth = 0.6

	res, err := GrowthStrategy(c, StrategyExpand, 1_000, rules, stochastic.Midpoint())
	require.NoError(t, err)

	assert.InDelta(t, 10.0, res.Cost, 1e-9)
	assert.InDelta(t, 0.04, c.GrowthRate, 1e-12)
	assert.InDelta(t, 0.635, c.OperationalHealth, 1e-12)
}

func TestGrowthStrategyRollUp(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	c.OperationalHealth = 0.6
	src := &stochastic.Scripted{Frac: 0.5, Float: 0.1}

	res, err := GrowthStrategy(c, StrategyRollUp, 1_000, rules, src)
	require.NoError(t, err)

	assert.InDelta(t, 175.0, res.Cost, 1e-9)
	assert.InDelta(t, 115.0, c.Revenue, 1e-9)
	assert.InDelta(t, 0.22, c.EBITDAMargin, 1e-12)
	assert.InDelta(t, 0.155, c.Volatility, 1e-12)
	assert.InDelta(t, 0.0, c.GrowthRate, 1e-12)
	assert.Equal(t, IntegrationSmooth, res.Integration)
	assert.InDelta(t, 0.64, c.OperationalHealth, 1e-12)
}

func TestGrowthStrategyRollUpBands(t *testing.T) {
	rules := testRules(t)
	tests := []struct {
		band float64
		want string
	}{
		{0.1, IntegrationSmooth},
		{0.5, IntegrationNeutral},
		{0.9, IntegrationRough},
	}
	for _, tc := range tests {
		c := newTestCompany(100, 0.2)
		res, err := GrowthStrategy(c, StrategyRollUp, 1_000, rules, &stochastic.Scripted{Frac: 0.5, Float: tc.band})
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Integration)
	}
}

func TestGrowthStrategyDiversify(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)

	res, err := GrowthStrategy(c, StrategyDiversify, 0, rules, stochastic.Midpoint())
	require.NoError(t, err)

	assert.Zero(t, res.Cost)
	assert.InDelta(t, 0.065, c.Volatility, 1e-12)
	assert.InDelta(t, 0.21, c.EBITDAMargin, 1e-12)
}

func TestGrowthStrategyOverBudgetLeavesCompany(t *testing.T) {
	rules := testRules(t)
	c := newTestCompany(100, 0.2)
	before := *c

	_, err := GrowthStrategy(c, StrategyRollUp, 5, rules, stochastic.Midpoint())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before.Revenue, c.Revenue)
	assert.Equal(t, before.Volatility, c.Volatility)

	_, err = GrowthStrategy(c, Strategy("leapfrog"), 1_000, rules, stochastic.Midpoint())
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"roll_up":   StrategyRollUp,
		"Roll-Up":   StrategyRollUp,
		" expand ":  StrategyExpand,
		"DIVERSIFY": StrategyDiversify,
		"rollup":    StrategyRollUp,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("merge")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
