package game

import (
	"maps"
	"slices"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

// MarketState is the persisted part of a Market.
type MarketState struct {
	InterestRate     float64              `json:"interest_rate"`
	GrowthRate       float64              `json:"growth_rate"`
	CreditConditions float64              `json:"credit_conditions"`
	MultipleTrend    float64              `json:"multiple_trend"`
	SectorMultiples  map[string]float64   `json:"sector_multiples"`
	InterestHistory  []float64            `json:"interest_history"`
	GrowthHistory    []float64            `json:"growth_history"`
	CreditHistory    []float64            `json:"credit_history"`
	TrendHistory     []float64            `json:"trend_history"`
	SectorHistory    map[string][]float64 `json:"sector_history"`
}

type Market struct {
	MarketState

	rules config.Rules
	src   stochastic.Source
}

// Conditions is the snapshot a company sees while simulating a quarter.
type Conditions struct {
	GrowthRate       float64
	InterestRate     float64
	CreditConditions float64
	MarginDrift      float64
	// SectorMultipliers scales market growth per sector; missing sectors use 1.0.
	SectorMultipliers map[string]float64
}

func (c Conditions) SectorMultiplier(sector string) float64 {
	if v, ok := c.SectorMultipliers[sector]; ok {
		return v
	}
	return 1.0
}

// MarketShift is a one-off market event effect. Multiple and credit changes
// are fractional: -0.1 compresses every sector multiple by 10%.
type MarketShift struct {
	GrowthDelta    float64 `json:"growth_delta,omitempty"`
	InterestDelta  float64 `json:"interest_delta,omitempty"`
	CreditDelta    float64 `json:"credit_delta,omitempty"`
	MultipleChange float64 `json:"multiple_change,omitempty"`
}

func NewMarket(rules config.Rules, src stochastic.Source) *Market {
	m := &Market{
		MarketState: MarketState{
			InterestRate:     rules.BaseInterestRate,
			GrowthRate:       rules.BaseMarketGrowth,
			CreditConditions: rules.InitialCreditConditions,
			MultipleTrend:    rules.TrendTarget,
			SectorMultiples:  make(map[string]float64, len(rules.Sectors)),
			SectorHistory:    make(map[string][]float64, len(rules.Sectors)),
		},
		rules: rules,
		src:   src,
	}
	for _, s := range rules.Sectors {
		m.SectorMultiples[s.Name] = rules.MultipleBounds.Clamp(s.InitialMultiple)
	}
	m.record()
	return m
}

// RestoreMarket rebuilds a market from persisted state. Values are re-clamped
// and missing sectors are seeded from the rules.
func RestoreMarket(rules config.Rules, src stochastic.Source, state MarketState) *Market {
	m := &Market{MarketState: state.clone(), rules: rules, src: src}
	if m.SectorMultiples == nil {
		m.SectorMultiples = make(map[string]float64, len(rules.Sectors))
	}
	if m.SectorHistory == nil {
		m.SectorHistory = make(map[string][]float64, len(rules.Sectors))
	}
	for _, s := range rules.Sectors {
		if _, ok := m.SectorMultiples[s.Name]; ok {
			continue
		}
		seed := rules.MultipleBounds.Clamp(s.InitialMultiple)
		m.SectorMultiples[s.Name] = seed
		// Backfill so every series has the same length.
		n := max(1, len(m.InterestHistory))
		for len(m.SectorHistory[s.Name]) < n {
			m.SectorHistory[s.Name] = append(m.SectorHistory[s.Name], seed)
		}
	}
	m.clampAll()
	return m
}

func (s MarketState) clone() MarketState {
	out := s
	out.SectorMultiples = maps.Clone(s.SectorMultiples)
	out.InterestHistory = slices.Clone(s.InterestHistory)
	out.GrowthHistory = slices.Clone(s.GrowthHistory)
	out.CreditHistory = slices.Clone(s.CreditHistory)
	out.TrendHistory = slices.Clone(s.TrendHistory)
	if s.SectorHistory != nil {
		out.SectorHistory = make(map[string][]float64, len(s.SectorHistory))
		for k, v := range s.SectorHistory {
			out.SectorHistory[k] = slices.Clone(v)
		}
	}
	return out
}

// State returns a deep copy of the market's data.
func (m *Market) State() MarketState {
	return m.MarketState.clone()
}

func (m *Market) Rules() config.Rules {
	return m.rules
}

// UpdateQuarter applies one quarter of independent gaussian moves and records
// every series.
func (m *Market) UpdateQuarter() {
	r := m.rules
	m.InterestRate += m.src.Normal(0, r.InterestRateVolatility*r.VolatilityMultiplier)
	m.GrowthRate += m.src.Normal(0, r.MarketVolatility*r.VolatilityMultiplier)
	m.CreditConditions += m.src.Normal(0, r.CreditVolatility)
	m.MultipleTrend = stochastic.OUStep(m.src, m.MultipleTrend, r.TrendTarget, r.TrendReversionSpeed, r.TrendVolatility)
	for _, name := range m.sectorNames() {
		m.SectorMultiples[name] += m.src.Normal(0, r.SectorMultipleVolatility)
	}
	m.clampAll()
	m.record()
}

// ApplyShift applies an event effect and re-clamps. It does not record history.
func (m *Market) ApplyShift(s MarketShift) {
	m.GrowthRate += s.GrowthDelta
	m.InterestRate += s.InterestDelta
	m.CreditConditions += s.CreditDelta
	if s.MultipleChange != 0 {
		for name := range m.SectorMultiples {
			m.SectorMultiples[name] *= 1 + s.MultipleChange
		}
	}
	m.clampAll()
}

func (m *Market) clampAll() {
	r := m.rules
	m.InterestRate = r.InterestRateBounds.Clamp(m.InterestRate)
	m.GrowthRate = r.MarketGrowthBounds.Clamp(m.GrowthRate)
	m.CreditConditions = r.CreditBounds.Clamp(m.CreditConditions)
	m.MultipleTrend = r.TrendBounds.Clamp(m.MultipleTrend)
	for name, v := range m.SectorMultiples {
		m.SectorMultiples[name] = r.MultipleBounds.Clamp(v)
	}
}

func (m *Market) record() {
	m.InterestHistory = append(m.InterestHistory, m.InterestRate)
	m.GrowthHistory = append(m.GrowthHistory, m.GrowthRate)
	m.CreditHistory = append(m.CreditHistory, m.CreditConditions)
	m.TrendHistory = append(m.TrendHistory, m.MultipleTrend)
	for name, v := range m.SectorMultiples {
		m.SectorHistory[name] = append(m.SectorHistory[name], v)
	}
}

// sectorNames is sorted so draws are consumed in a stable order.
func (m *Market) sectorNames() []string {
	return slices.Sorted(maps.Keys(m.SectorMultiples))
}

// SectorMultiple reports the current multiple for sector.
func (m *Market) SectorMultiple(sector string) (float64, bool) {
	v, ok := m.SectorMultiples[sector]
	return v, ok
}

func (m *Market) DiscountRate() float64 {
	return m.InterestRate + m.rules.RiskPremium
}

func (m *Market) DebtRate() float64 {
	return m.InterestRate + m.rules.DebtSpread
}

func (m *Market) IsRecession() bool {
	return m.GrowthRate < 0
}

func (m *Market) IsBoom() bool {
	return m.GrowthRate > 0.05
}

func (m *Market) Conditions() Conditions {
	return Conditions{
		GrowthRate:       m.GrowthRate,
		InterestRate:     m.InterestRate,
		CreditConditions: m.CreditConditions,
		MarginDrift:      m.rules.MarginDrift,
	}
}

// Sentiment is a one-word label for the current growth regime.
func (m *Market) Sentiment() string {
	switch {
	case m.IsBoom():
		return "boom"
	case m.IsRecession():
		return "recession"
	default:
		return "stable"
	}
}
