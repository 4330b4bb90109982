package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/stochastic"
)

func TestNewManagerClamps(t *testing.T) {
	m := NewManager(" Lee Park ", 1.4, -0.2, 0.5)

	assert.Equal(t, "Lee Park", m.Name)
	assert.Equal(t, 1.0, m.Competence)
	assert.Zero(t, m.RiskProfile)
	assert.Equal(t, 0.5, m.Cooperativeness)
}

func TestManagerModifiers(t *testing.T) {
	m := NewManager("Lee Park", 0.9, 0.4, 0.3)

	assert.InDelta(t, 0.04, m.BaseModifier(), 1e-12)
	assert.InDelta(t, 0.7, m.NegotiationDifficulty(), 1e-12)
	assert.InDelta(t, 0.6, m.StabilityFactor(), 1e-12)
	assert.InDelta(t, 0.04, m.PerformanceModifier(&stochastic.Scripted{}), 1e-12)
	assert.InDelta(t, 0.06, m.PerformanceModifier(&stochastic.Scripted{Z: 1}), 1e-12)
	assert.Contains(t, m.String(), "Lee Park")
}

func TestGenerateManagerWithinRanges(t *testing.T) {
	rules := testRules(t)
	src := stochastic.NewSeeded(8)
	for i := 0; i < 50; i++ {
		m := GenerateManager(rules, DefaultTables(), src)
		require.NotEmpty(t, m.Name)
		assert.True(t, rules.Competence.Contains(m.Competence))
		assert.True(t, rules.RiskProfile.Contains(m.RiskProfile))
		assert.True(t, rules.Cooperativeness.Contains(m.Cooperativeness))
	}
}

func TestCandidatesImproveOnCurrent(t *testing.T) {
	tables := DefaultTables()
	for seed := int64(0); seed < 10; seed++ {
		current := NewManager("Incumbent", 0.6, 0.5, 0.6)
		got := Candidates(current, 3, tables, stochastic.NewSeeded(seed))
		require.Len(t, got, 3)

		seen := map[string]bool{}
		for _, c := range got {
			assert.False(t, seen[c.Archetype], "archetypes repeat")
			seen[c.Archetype] = true
			assert.NotEmpty(t, c.Improvements)
			better := c.Manager.Competence > current.Competence+0.1 ||
				c.Manager.Cooperativeness > current.Cooperativeness+0.1
			assert.True(t, better)
		}
	}
}

func TestCandidatesFallBackToCooperativeness(t *testing.T) {
	current := NewManager("Star", 0.95, 0.5, 0.7)
	// Lowest draws everywhere keep every archetype below the incumbent.
	src := &stochastic.Scripted{Frac: 0}

	got := Candidates(current, 2, DefaultTables(), src)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.InDelta(t, 0.85, c.Manager.Cooperativeness, 1e-12)
		assert.Len(t, c.Improvements, 1)
	}
}

func TestCandidatesBounds(t *testing.T) {
	tables := DefaultTables()
	assert.Nil(t, Candidates(steadyManager(), 0, tables, stochastic.Midpoint()))
	got := Candidates(steadyManager(), 50, tables, stochastic.NewSeeded(1))
	assert.Len(t, got, len(tables.Archetypes))
}

func TestTransitionImpact(t *testing.T) {
	prev := NewManager("Old", 0.5, 0.2, 0.3)
	next := NewManager("New", 0.8, 0.6, 0.9)

	tr := TransitionImpact(prev, next, stochastic.Midpoint())

	assert.InDelta(t, (0.02+0.015)*0.7, tr.Penalty, 1e-12)
	assert.InDelta(t, 0.02, tr.VolatilityChange, 1e-12)
	assert.InDelta(t, 0.3, tr.CompetenceDelta, 1e-12)
	assert.InDelta(t, 0.09, tr.HealthChange, 1e-12)

	down := TransitionImpact(next, prev, stochastic.Midpoint())
	assert.Zero(t, down.HealthChange)
}
