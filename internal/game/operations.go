package game

import (
	"fmt"
	"math"
	"strings"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

type OperationKind string

const (
	OpCostCutting       OperationKind = "cost_cutting"
	OpCapitalInvestment OperationKind = "capex"
	OpReplaceManagement OperationKind = "replace_management"
	OpGrowthStrategy    OperationKind = "growth_strategy"
)

type Strategy string

const (
	StrategyRollUp    Strategy = "roll_up"
	StrategyExpand    Strategy = "expand"
	StrategyDiversify Strategy = "diversify"
)

func ParseStrategy(v string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(v))); s {
	case StrategyRollUp, StrategyExpand, StrategyDiversify:
		return s, nil
	case "rollup", "roll-up":
		return StrategyRollUp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, v)
	}
}

// Integration outcome of a roll-up.
const (
	IntegrationSmooth  = "smooth"
	IntegrationNeutral = "neutral"
	IntegrationRough   = "rough"
)

// OperationResult reports what an operation changed. Cost and
// ReputationDelta are settled by the caller.
type OperationResult struct {
	Kind             OperationKind `json:"kind"`
	CompanyID        string        `json:"company_id"`
	Message          string        `json:"message"`
	Cost             float64       `json:"cost"`
	ReputationDelta  float64       `json:"reputation_delta,omitempty"`
	RevenueChange    float64       `json:"revenue_change,omitempty"`
	MarginChange     float64       `json:"margin_change,omitempty"`
	GrowthChange     float64       `json:"growth_change,omitempty"`
	VolatilityChange float64       `json:"volatility_change,omitempty"`
	HealthChange     float64       `json:"health_change,omitempty"`
	Effectiveness    float64       `json:"effectiveness,omitempty"`
	MoraleHit        bool          `json:"morale_hit,omitempty"`
	DifficultExit    bool          `json:"difficult_exit,omitempty"`
	Strategy         Strategy      `json:"strategy,omitempty"`
	Integration      string        `json:"integration,omitempty"`
	PreviousManager  *Manager      `json:"previous_manager,omitempty"`
	NewManager       *Manager      `json:"new_manager,omitempty"`
}

type snapshot struct {
	revenue, margin, growth, volatility, health float64
}

func snap(c *Company) snapshot {
	return snapshot{c.Revenue, c.EBITDAMargin, c.GrowthRate, c.Volatility, c.OperationalHealth}
}

func (s snapshot) diff(c *Company, r *OperationResult) {
	if s.revenue > 0 {
		r.RevenueChange = c.Revenue/s.revenue - 1
	}
	r.MarginChange = c.EBITDAMargin - s.margin
	r.GrowthChange = c.GrowthRate - s.growth
	r.VolatilityChange = c.Volatility - s.volatility
	r.HealthChange = c.OperationalHealth - s.health
}

// raiseMargin adds delta without pushing the margin past limit; a margin
// already above limit is left where it is.
func raiseMargin(c *Company, delta, limit float64) {
	if c.EBITDAMargin >= limit {
		return
	}
	c.EBITDAMargin = clamp01(math.Min(limit, c.EBITDAMargin+delta))
}

// CostCutting trades growth and health for margin. Intensity is in [0, 1].
func CostCutting(c *Company, intensity float64, rules config.Rules, src stochastic.Source) (OperationResult, error) {
	if math.IsNaN(intensity) || intensity < 0 || intensity > 1 {
		return OperationResult{}, ErrInvalidIntensity
	}
	before := snap(c)
	res := OperationResult{Kind: OpCostCutting, CompanyID: c.ID}

	raiseMargin(c, src.Uniform(0, rules.CostCuttingMaxImpact*intensity), rules.MaxOperatingMargin)
	c.GrowthRate -= intensity * 0.02
	if p := math.Max(0, intensity-0.5) * 0.6; p > 0 && stochastic.Chance(src, p) {
		c.GrowthRate -= 0.01
		res.MoraleHit = true
	}
	damage := 0.15
	if intensity > 0.7 {
		damage = 0.25
	}
	c.OperationalHealth = clamp01(c.OperationalHealth - intensity*damage)
	if intensity > 0.8 && stochastic.Chance(src, 0.25) {
		res.ReputationDelta = -0.02
	}

	before.diff(c, &res)
	res.Message = fmt.Sprintf("margin %+.1f pts, growth %+.1f pts", res.MarginChange*100, res.GrowthChange*100)
	return res, nil
}

// CapitalInvestment boosts growth and health. The amount is charged by the caller.
func CapitalInvestment(c *Company, amount float64, rules config.Rules, src stochastic.Source) (OperationResult, error) {
	if !validAmount(amount) {
		return OperationResult{}, ErrInvalidAmount
	}
	before := snap(c)
	ratio := math.Inf(1)
	if c.Revenue > 0 {
		ratio = amount / c.Revenue
	}
	effectiveness := src.Uniform(0.7, 1.3)
	c.GrowthRate += math.Min(rules.CapexBoostMaxImpact, ratio*0.05) * effectiveness
	c.OperationalHealth = clamp01(c.OperationalHealth + math.Min(0.15, ratio*0.10))

	res := OperationResult{Kind: OpCapitalInvestment, CompanyID: c.ID, Cost: amount, Effectiveness: effectiveness}
	before.diff(c, &res)
	res.Message = fmt.Sprintf("growth %+.1f pts at %.0f%% effectiveness", res.GrowthChange*100, effectiveness*100)
	return res, nil
}

// ReplaceManagement swaps in next. A difficult outgoing manager may raise the
// cost by half and dent reputation. Nothing changes when the final cost
// exceeds budget.
func ReplaceManagement(c *Company, next Manager, budget float64, rules config.Rules, src stochastic.Source) (OperationResult, error) {
	res := OperationResult{Kind: OpReplaceManagement, CompanyID: c.ID, Cost: rules.ManagerReplacementCost}
	prev := c.Manager
	if prev.NegotiationDifficulty() > 0.7 && stochastic.Chance(src, 0.5) {
		res.Cost *= 1.5
		res.ReputationDelta = -0.05
		res.DifficultExit = true
	}
	if res.Cost > budget {
		return OperationResult{}, fmt.Errorf("%w: replacement costs %.0f", ErrInsufficientFunds, res.Cost)
	}

	before := snap(c)
	t := TransitionImpact(prev, next, src)
	c.GrowthRate -= t.Penalty
	c.Volatility = math.Max(0.01, c.Volatility+t.VolatilityChange)
	c.OperationalHealth = clamp01(c.OperationalHealth + t.HealthChange)
	c.Manager = next

	before.diff(c, &res)
	res.PreviousManager = &prev
	res.NewManager = &next
	res.Message = fmt.Sprintf("%s replaces %s", next.Name, prev.Name)
	return res, nil
}

// GrowthStrategy executes one strategy. The cost is drawn first and nothing
// changes when it exceeds budget.
func GrowthStrategy(c *Company, s Strategy, budget float64, rules config.Rules, src stochastic.Source) (OperationResult, error) {
	res := OperationResult{Kind: OpGrowthStrategy, CompanyID: c.ID, Strategy: s}
	switch s {
	case StrategyRollUp:
		res.Cost = c.Revenue * src.Uniform(1.5, 2.0)
	case StrategyExpand:
		res.Cost = c.Revenue * 0.10
	case StrategyDiversify:
	default:
		return OperationResult{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	if res.Cost > budget {
		return OperationResult{}, fmt.Errorf("%w: %s costs %.0f", ErrInsufficientFunds, s, res.Cost)
	}

	before := snap(c)
	switch s {
	case StrategyRollUp:
		c.Revenue *= 1 + src.Uniform(0.10, 0.20)
		raiseMargin(c, src.Uniform(0.01, 0.03), rules.MaxOperatingMargin)
		c.Volatility += src.Uniform(0.03, 0.08)
		c.GrowthRate -= src.Uniform(0.01, 0.03)
		band := src.Float64()
		switch {
		case band < 0.4:
			res.Integration = IntegrationSmooth
			c.OperationalHealth += src.Uniform(0.02, 0.06)
		case band < 0.8:
			res.Integration = IntegrationNeutral
			c.OperationalHealth += src.Uniform(-0.02, 0.02)
		default:
			res.Integration = IntegrationRough
			c.OperationalHealth -= src.Uniform(0.10, 0.20)
		}
		c.OperationalHealth = clamp01(c.OperationalHealth)
	case StrategyExpand:
		c.GrowthRate += src.Uniform(0.01, 0.03)
		c.OperationalHealth = clamp01(c.OperationalHealth + src.Uniform(0.02, 0.05))
	case StrategyDiversify:
		c.Volatility = math.Max(0.02, c.Volatility-src.Uniform(0.02, 0.05))
		raiseMargin(c, src.Uniform(0, 0.02), rules.MaxOperatingMargin)
	}

	before.diff(c, &res)
	res.Message = fmt.Sprintf("%s: revenue %+.1f%%, margin %+.1f pts, growth %+.1f pts",
		s, res.RevenueChange*100, res.MarginChange*100, res.GrowthChange*100)
	return res, nil
}
