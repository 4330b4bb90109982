package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/stochastic"
)

func newEventGenerator(t *testing.T, src stochastic.Source) *EventGenerator {
	t.Helper()
	return NewEventGenerator(testRules(t), nil, src)
}

func TestGenerateNoEvent(t *testing.T) {
	g := newEventGenerator(t, &stochastic.Scripted{Float: 0.99})
	_, ok := g.Generate([]*Company{newTestCompany(100, 0.2)})
	assert.False(t, ok)
}

func TestGenerateCrisisSubset(t *testing.T) {
	g := newEventGenerator(t, &stochastic.Scripted{Floats: []float64{0, 0}, Frac: 0.5})
	c := newTestCompany(100, 0.2)

	e, ok := g.Generate([]*Company{c})
	require.True(t, ok)
	assert.Equal(t, EventCrisis, e.Kind)
	assert.Equal(t, c.ID, e.CompanyID)
	assert.Equal(t, c.Name, e.Company)
	assert.NotEmpty(t, e.Headline)
}

func TestGenerateCompanyEventNeedsPortfolio(t *testing.T) {
	g := newEventGenerator(t, &stochastic.Scripted{Floats: []float64{0, 0.99}, Int: 4})
	_, ok := g.Generate(nil)
	assert.False(t, ok)
}

func TestMarketEvents(t *testing.T) {
	g := newEventGenerator(t, stochastic.Midpoint())

	crash, ok := g.Build(EventMarketCrash, nil)
	require.True(t, ok)
	require.NotNil(t, crash.Market)
	assert.InDelta(t, 0.2, crash.Severity, 1e-12)
	assert.InDelta(t, -0.2, crash.Market.GrowthDelta, 1e-12)
	assert.InDelta(t, -0.15, crash.Market.MultipleChange, 1e-12)
	assert.InDelta(t, -0.2, crash.Market.CreditDelta, 1e-12)
	assert.Nil(t, crash.Effect)

	boom, ok := g.Build(EventMarketBoom, nil)
	require.True(t, ok)
	assert.InDelta(t, 0.1, boom.Market.GrowthDelta, 1e-12)
	assert.InDelta(t, 0.1, boom.Market.MultipleChange, 1e-12)
	assert.InDelta(t, 0.1, boom.Market.CreditDelta, 1e-12)

	shift, ok := g.Build(EventMarketShift, nil)
	require.True(t, ok)
	assert.InDelta(t, 0.0, shift.Market.GrowthDelta, 1e-12)
	assert.InDelta(t, 0.0, shift.Market.InterestDelta, 1e-12)
}

func TestSectorShock(t *testing.T) {
	rules := testRules(t)

	one := NewEventGenerator(rules, nil, stochastic.Midpoint())
	e, ok := one.Build(EventSectorShock, nil)
	require.True(t, ok)
	assert.Nil(t, e.Market)
	require.Len(t, e.SectorMultipliers, 1)
	for name, m := range e.SectorMultipliers {
		_, known := rules.Sector(name)
		assert.True(t, known)
		assert.InDelta(t, 1.0, m, 1e-12)
	}

	three := NewEventGenerator(rules, nil, &stochastic.Scripted{Frac: 0.5, Int: 2})
	e, ok = three.Build(EventSectorShock, nil)
	require.True(t, ok)
	assert.Len(t, e.SectorMultipliers, 3)
}

func TestCompanyEvents(t *testing.T) {
	c := newTestCompany(100, 0.2)
	portfolio := []*Company{c}

	tests := []struct {
		kind   EventKind
		frac   float64
		effect CompanyEffect
		cost   float64
		action bool
	}{
		{EventCrisis, 0.5, CompanyEffect{RevenueImpact: -0.275, MarginImpact: -0.0825, GrowthImpact: -0.03}, 0, false},
		{EventBreakthrough, 0.5, CompanyEffect{RevenueImpact: 0.1, MarginImpact: 0.04, GrowthImpact: 0.02}, 0, false},
		{EventOperational, 0.25, CompanyEffect{RevenueImpact: -0.05, MarginImpact: -0.025}, 0, false},
		{EventManagement, 0.5, CompanyEffect{GrowthImpact: -0.02}, 0, false},
		{EventManagement, 0.8, CompanyEffect{GrowthImpact: -0.03}, 0, true},
		{EventManagement, 0.1, CompanyEffect{GrowthImpact: -0.01}, 0, false},
		{EventRegulatory, 0.5, CompanyEffect{MarginImpact: -0.05}, 0.5, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			g := newEventGenerator(t, &stochastic.Scripted{Frac: tc.frac, Float: 0.5})
			e, ok := g.Build(tc.kind, portfolio)
			require.True(t, ok)
			require.NotNil(t, e.Effect)
			assert.InDelta(t, tc.effect.RevenueImpact, e.Effect.RevenueImpact, 1e-12)
			assert.InDelta(t, tc.effect.MarginImpact, e.Effect.MarginImpact, 1e-12)
			assert.InDelta(t, tc.effect.GrowthImpact, e.Effect.GrowthImpact, 1e-12)
			assert.InDelta(t, tc.cost, e.OneTimeCost, 1e-9)
			assert.Equal(t, tc.action, e.RequiresAction)
			assert.Equal(t, c.ID, e.CompanyID)
		})
	}
}

func TestCompanyEventWithoutPortfolio(t *testing.T) {
	g := newEventGenerator(t, stochastic.Midpoint())
	for _, k := range []EventKind{EventOperational, EventCrisis, EventBreakthrough, EventManagement, EventRegulatory} {
		_, ok := g.Build(k, nil)
		assert.False(t, ok, k)
		assert.False(t, k.TargetsMarket())
	}
}

func TestMitigatedHalvesNegatives(t *testing.T) {
	orig := &CompanyEffect{RevenueImpact: -0.2, MarginImpact: 0.1, GrowthImpact: -0.02, HealthImpact: -0.1}
	e := Event{Kind: EventCrisis, Effect: orig}

	m := e.Mitigated()

	assert.InDelta(t, -0.1, m.Effect.RevenueImpact, 1e-12)
	assert.InDelta(t, 0.1, m.Effect.MarginImpact, 1e-12)
	assert.InDelta(t, -0.01, m.Effect.GrowthImpact, 1e-12)
	assert.InDelta(t, -0.05, m.Effect.HealthImpact, 1e-12)
	assert.Equal(t, -0.2, orig.RevenueImpact)

	market := Event{Kind: EventMarketCrash, Market: &MarketShift{GrowthDelta: -0.1}}
	assert.Equal(t, market, market.Mitigated())
}
