package game

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"pefund/internal/stochastic"
)

const minInitialHealth = 0.5

type Company struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Sector                string    `json:"sector"`
	Revenue               float64   `json:"revenue"`
	EBITDAMargin          float64   `json:"ebitda_margin"`
	GrowthRate            float64   `json:"growth_rate"`
	Volatility            float64   `json:"volatility"`
	ValuationMultiple     *float64  `json:"valuation_multiple,omitempty"`
	OperationalHealth     float64   `json:"operational_health"`
	Manager               Manager   `json:"manager"`
	AcquisitionPrice      *float64  `json:"acquisition_price,omitempty"`
	AcquisitionQuarter    *int      `json:"acquisition_quarter,omitempty"`
	CurrentValuation      float64   `json:"current_valuation"`
	RevenueHistory        []float64 `json:"revenue_history"`
	EBITDAHistory         []float64 `json:"ebitda_history"`
	LastOperationQuarter  *int      `json:"last_operation_quarter,omitempty"`
	OperationsThisQuarter int       `json:"operations_this_quarter"`
}

type CompanySpec struct {
	Name       string
	Sector     string
	Revenue    float64
	Margin     float64
	Growth     float64
	Volatility float64
	Health     float64
	Manager    Manager
}

// NewCompany builds a company with fresh histories. Health below 0.5 is
// raised to 0.5.
func NewCompany(spec CompanySpec) *Company {
	c := &Company{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(spec.Name),
		Sector:            spec.Sector,
		Revenue:           max(0, spec.Revenue),
		EBITDAMargin:      clamp01(spec.Margin),
		GrowthRate:        spec.Growth,
		Volatility:        max(0, spec.Volatility),
		OperationalHealth: clamp(spec.Health, minInitialHealth, 1),
		Manager:           spec.Manager,
	}
	c.RevenueHistory = []float64{c.Revenue}
	c.EBITDAHistory = []float64{c.EBITDA()}
	return c
}

func (c *Company) EBITDA() float64 {
	return c.Revenue * c.EBITDAMargin
}

// Clone returns a deep copy.
func (c *Company) Clone() *Company {
	out := *c
	out.RevenueHistory = slices.Clone(c.RevenueHistory)
	out.EBITDAHistory = slices.Clone(c.EBITDAHistory)
	if c.ValuationMultiple != nil {
		out.ValuationMultiple = ptr(*c.ValuationMultiple)
	}
	if c.AcquisitionPrice != nil {
		out.AcquisitionPrice = ptr(*c.AcquisitionPrice)
	}
	if c.AcquisitionQuarter != nil {
		out.AcquisitionQuarter = ptr(*c.AcquisitionQuarter)
	}
	if c.LastOperationQuarter != nil {
		out.LastOperationQuarter = ptr(*c.LastOperationQuarter)
	}
	return &out
}

// Performance reports how a simulated quarter's growth was composed.
type Performance struct {
	Growth        float64 `json:"growth"`
	Intrinsic     float64 `json:"intrinsic"`
	ManagerImpact float64 `json:"manager_impact"`
	MarketImpact  float64 `json:"market_impact"`
	Noise         float64 `json:"noise"`
	MarginDrift   float64 `json:"margin_drift"`
	Revenue       float64 `json:"revenue"`
	EBITDA        float64 `json:"ebitda"`
}

// SimulateQuarter advances revenue and margin one quarter and appends both
// histories.
func (c *Company) SimulateQuarter(cond Conditions, src stochastic.Source) Performance {
	p := Performance{
		Intrinsic:     c.GrowthRate,
		ManagerImpact: c.Manager.PerformanceModifier(src),
		MarketImpact:  cond.GrowthRate * cond.SectorMultiplier(c.Sector),
		Noise:         src.Normal(0, c.Volatility),
	}
	p.Growth = p.Intrinsic + p.ManagerImpact + p.MarketImpact + p.Noise
	c.Revenue = max(0, c.Revenue*(1+p.Growth))

	p.MarginDrift = src.Normal(0, cond.MarginDrift)
	c.EBITDAMargin = clamp01(c.EBITDAMargin + p.MarginDrift)

	c.RevenueHistory = append(c.RevenueHistory, c.Revenue)
	c.EBITDAHistory = append(c.EBITDAHistory, c.EBITDA())
	c.OperationsThisQuarter = 0

	p.Revenue = c.Revenue
	p.EBITDA = c.EBITDA()
	return p
}

// MultipleSource supplies the market side of a valuation.
type MultipleSource interface {
	SectorMultiple(sector string) (float64, bool)
	DefaultMultiple() float64
	Trend() float64
}

func (m *Market) DefaultMultiple() float64 {
	return m.rules.DefaultMultiple()
}

func (m *Market) Trend() float64 {
	return m.MultipleTrend
}

type Valuation struct {
	EBITDA        float64 `json:"ebitda"`
	BaseMultiple  float64 `json:"base_multiple"`
	Trend         float64 `json:"trend"`
	Health        float64 `json:"health_adjustment"`
	GrowthQuality float64 `json:"growth_quality"`
	Multiple      float64 `json:"effective_multiple"`
	Value         float64 `json:"value"`
}

// Value composes the effective multiple without touching the company.
func (c *Company) Value(ms MultipleSource) Valuation {
	v := Valuation{
		EBITDA:        c.EBITDA(),
		BaseMultiple:  c.baseMultiple(ms),
		Trend:         ms.Trend(),
		Health:        HealthValuationFloor + (1-HealthValuationFloor)*c.OperationalHealth,
		GrowthQuality: c.growthQuality(),
	}
	v.Multiple = v.BaseMultiple * v.Trend * v.Health * v.GrowthQuality
	v.Value = v.EBITDA * v.Multiple
	return v
}

// CalculateValuation stores and returns the current valuation.
func (c *Company) CalculateValuation(ms MultipleSource) float64 {
	c.CurrentValuation = c.Value(ms).Value
	return c.CurrentValuation
}

func (c *Company) baseMultiple(ms MultipleSource) float64 {
	if c.ValuationMultiple != nil {
		return *c.ValuationMultiple
	}
	if v, ok := ms.SectorMultiple(c.Sector); ok {
		return v
	}
	return ms.DefaultMultiple()
}

func (c *Company) growthQuality() float64 {
	if len(c.RevenueHistory) < 4 {
		return 1.0
	}
	avg := stat.Mean(c.growthSeries(3), nil)
	switch {
	case avg > 0.06:
		return 1.08
	case avg > 0.03:
		return 1.04
	case avg < -0.03:
		return 0.92
	case avg < 0:
		return 0.96
	default:
		return 1.0
	}
}

// growthSeries returns up to n most recent quarter-on-quarter growth rates.
// A non-positive prior revenue counts as zero growth.
func (c *Company) growthSeries(n int) []float64 {
	h := c.RevenueHistory
	if n > len(h)-1 {
		n = len(h) - 1
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	for i := len(h) - n; i < len(h); i++ {
		prev := h[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, h[i]/prev-1)
	}
	return out
}

func (c *Company) QuarterlyGrowth() float64 {
	g := c.growthSeries(1)
	if len(g) == 0 {
		return 0
	}
	return g[0]
}

// TrailingGrowth averages the last n quarterly growth rates.
func (c *Company) TrailingGrowth(n int) float64 {
	g := c.growthSeries(n)
	if len(g) == 0 {
		return 0
	}
	return stat.Mean(g, nil)
}

// TrailingVolatility is the sample standard deviation of the last n growth rates.
func (c *Company) TrailingVolatility(n int) float64 {
	g := c.growthSeries(n)
	if len(g) < 2 {
		return 0
	}
	return stat.StdDev(g, nil)
}

// CompanyEffect is an event payload. Revenue impact is multiplicative, the
// others are additive; zero fields leave the company untouched.
type CompanyEffect struct {
	RevenueImpact float64 `json:"revenue_impact,omitempty"`
	MarginImpact  float64 `json:"margin_impact,omitempty"`
	GrowthImpact  float64 `json:"growth_impact,omitempty"`
	HealthImpact  float64 `json:"health_impact,omitempty"`
}

func (c *Company) ApplyEvent(e CompanyEffect) {
	c.Revenue = max(0, c.Revenue*(1+e.RevenueImpact))
	c.EBITDAMargin = clamp01(c.EBITDAMargin + e.MarginImpact)
	c.GrowthRate += e.GrowthImpact
	c.OperationalHealth = clamp01(c.OperationalHealth + e.HealthImpact)
}

func (c *Company) CanOperate(quarter int) bool {
	return c.LastOperationQuarter == nil || *c.LastOperationQuarter != quarter
}

func (c *Company) MarkOperated(quarter int) {
	c.LastOperationQuarter = ptr(quarter)
	c.OperationsThisQuarter++
}

func (c *Company) Acquired() bool {
	return c.AcquisitionPrice != nil
}

// HoldingQuarters is the number of quarters since acquisition, or 0.
func (c *Company) HoldingQuarters(now int) int {
	if c.AcquisitionQuarter == nil || now < *c.AcquisitionQuarter {
		return 0
	}
	return now - *c.AcquisitionQuarter
}

// ReturnOnCost compares the current valuation with the purchase price.
func (c *Company) ReturnOnCost() (float64, bool) {
	if c.AcquisitionPrice == nil || *c.AcquisitionPrice <= 0 {
		return 0, false
	}
	cost := *c.AcquisitionPrice
	return c.CurrentValuation/cost - 1, true
}

type Metrics struct {
	Revenue           float64 `json:"revenue"`
	EBITDA            float64 `json:"ebitda"`
	EBITDAMargin      float64 `json:"ebitda_margin"`
	GrowthRate        float64 `json:"growth_rate"`
	Valuation         float64 `json:"valuation"`
	QuarterlyGrowth   float64 `json:"quarterly_growth"`
	TrailingGrowth    float64 `json:"trailing_growth"`
	OperationalHealth float64 `json:"operational_health"`
}

func (c *Company) Metrics() Metrics {
	return Metrics{
		Revenue:           c.Revenue,
		EBITDA:            c.EBITDA(),
		EBITDAMargin:      c.EBITDAMargin,
		GrowthRate:        c.GrowthRate,
		Valuation:         c.CurrentValuation,
		QuarterlyGrowth:   c.QuarterlyGrowth(),
		TrailingGrowth:    c.TrailingGrowth(3),
		OperationalHealth: c.OperationalHealth,
	}
}
