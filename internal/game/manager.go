package game

import (
	"fmt"
	"strings"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

// Manager runs one portfolio company. Values are replaced wholesale on a
// management change, never edited in place.
type Manager struct {
	Name            string  `json:"name"`
	Competence      float64 `json:"competence"`
	RiskProfile     float64 `json:"risk_profile"`
	Cooperativeness float64 `json:"cooperativeness"`
}

func NewManager(name string, competence, riskProfile, cooperativeness float64) Manager {
	return Manager{
		Name:            strings.TrimSpace(name),
		Competence:      clamp01(competence),
		RiskProfile:     clamp01(riskProfile),
		Cooperativeness: clamp01(cooperativeness),
	}
}

// GenerateManager draws attributes from the configured ranges.
func GenerateManager(rules config.Rules, tables *Tables, src stochastic.Source) Manager {
	return NewManager(
		tables.ManagerName(src),
		src.Uniform(rules.Competence.Min, rules.Competence.Max),
		src.Uniform(rules.RiskProfile.Min, rules.RiskProfile.Max),
		src.Uniform(rules.Cooperativeness.Min, rules.Cooperativeness.Max),
	)
}

// PerformanceModifier is the manager's additive contribution to quarterly
// growth. Risk appetite widens the spread without moving the mean.
func (m Manager) PerformanceModifier(src stochastic.Source) float64 {
	return m.BaseModifier() + src.Normal(0, m.RiskProfile*0.05)
}

func (m Manager) BaseModifier() float64 {
	return (m.Competence - 0.5) * 0.1
}

func (m Manager) NegotiationDifficulty() float64 {
	return 1 - m.Cooperativeness
}

func (m Manager) StabilityFactor() float64 {
	return (m.Competence + m.Cooperativeness) / 2
}

func (m Manager) String() string {
	return fmt.Sprintf("%s (competence %.0f%%, risk %.0f%%, coop %.0f%%)",
		m.Name, m.Competence*100, m.RiskProfile*100, m.Cooperativeness*100)
}

type Candidate struct {
	Archetype    string   `json:"archetype"`
	Manager      Manager  `json:"manager"`
	Pitch        string   `json:"pitch"`
	Improvements []string `json:"improvements"`
}

// Candidates proposes up to n replacements, each drawn from a distinct
// archetype and each better than current by more than 0.10 in competence or
// cooperativeness.
func Candidates(current Manager, n int, tables *Tables, src stochastic.Source) []Candidate {
	if n <= 0 {
		return nil
	}
	archetypes := append([]Archetype(nil), tables.Archetypes...)
	stochastic.Shuffle(src, archetypes)
	if n > len(archetypes) {
		n = len(archetypes)
	}

	out := make([]Candidate, 0, n)
	for _, a := range archetypes[:n] {
		competence := src.Uniform(a.Competence.Min, a.Competence.Max)
		risk := src.Uniform(a.RiskProfile.Min, a.RiskProfile.Max)
		coop := src.Uniform(a.Cooperativeness.Min, a.Cooperativeness.Max)

		var improvements []string
		if competence > current.Competence+0.1 {
			improvements = append(improvements, fmt.Sprintf("competence +%.0f%%", (competence-current.Competence)*100))
		}
		if coop > current.Cooperativeness+0.1 {
			improvements = append(improvements, fmt.Sprintf("cooperativeness +%.0f%%", (coop-current.Cooperativeness)*100))
		}
		if len(improvements) == 0 {
			// Boost whichever attribute has headroom.
			if current.Competence+0.15 <= 1 {
				competence = clamp(current.Competence+src.Uniform(0.15, 0.30), 0, 1)
				improvements = append(improvements, fmt.Sprintf("competence +%.0f%%", (competence-current.Competence)*100))
			} else {
				coop = clamp(current.Cooperativeness+src.Uniform(0.15, 0.30), 0, 1)
				improvements = append(improvements, fmt.Sprintf("cooperativeness +%.0f%%", (coop-current.Cooperativeness)*100))
			}
		}
		out = append(out, Candidate{
			Archetype:    a.Title,
			Manager:      NewManager(tables.ManagerName(src), competence, risk, coop),
			Pitch:        a.Pitch,
			Improvements: improvements,
		})
	}
	return out
}

// Transition describes the cost of swapping one manager for another.
type Transition struct {
	Penalty          float64 `json:"penalty"`
	VolatilityChange float64 `json:"volatility_change"`
	CompetenceDelta  float64 `json:"competence_delta"`
	HealthChange     float64 `json:"health_change"`
}

func TransitionImpact(prev, next Manager, src stochastic.Source) Transition {
	penalty := src.Uniform(0.01, 0.03)
	if prev.Cooperativeness < 0.4 {
		penalty += src.Uniform(0.01, 0.02)
	}
	if next.Cooperativeness > 0.7 {
		penalty *= 0.7
	}
	delta := next.Competence - prev.Competence
	return Transition{
		Penalty:          penalty,
		VolatilityChange: (next.RiskProfile - prev.RiskProfile) * 0.05,
		CompetenceDelta:  delta,
		HealthChange:     min(0.2, max(0, delta)*0.3),
	}
}
