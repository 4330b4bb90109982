package config

import (
	"errors"
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

func ParseDifficulty(v string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(v))); d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return d, nil
	case "":
		return DifficultyNormal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, v)
	}
}

// Range is an inclusive [Min, Max] interval for uniform draws and clamps.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// SectorSpec describes one sector: its starting EBITDA multiple and the
// margin/growth tilt applied to generated companies.
type SectorSpec struct {
	Name            string  `json:"name"`
	InitialMultiple float64 `json:"initial_multiple"`
	MarginBoost     float64 `json:"margin_boost"`
	GrowthBoost     float64 `json:"growth_boost"`
}

// Rules is the numeric bundle for one session. It is built once per
// difficulty and passed by value into every component.
type Rules struct {
	Difficulty Difficulty

	StartingCapital               float64
	StartingReputation            float64
	BaseDebtCapacity              float64
	MinDebtCapacity               float64
	DebtToNetWorthRatio           float64
	ReputationMultiplier          float64
	ReputationProfitSensitivity   float64
	MaxQuarterlyReputationChange  float64
	EmptyPortfolioReputationDrift float64
	CapitalGainsTaxRate           float64
	GameQuarters                  int
	DealsPerQuarter               int
	MaxCounterOffers              int

	BaseInterestRate         float64
	BaseMarketGrowth         float64
	InitialCreditConditions  float64
	InterestRateVolatility   float64
	MarketVolatility         float64
	VolatilityMultiplier     float64
	CreditVolatility         float64
	TrendVolatility          float64
	TrendReversionSpeed      float64
	TrendTarget              float64
	SectorMultipleVolatility float64
	RiskPremium              float64
	DebtSpread               float64
	InterestRateBounds       Range
	MarketGrowthBounds       Range
	CreditBounds             Range
	TrendBounds              Range
	MultipleBounds           Range
	Sectors                  []SectorSpec

	Revenue           Range
	Margin            Range
	Growth            Range
	RevenueVolatility float64
	MinVolatility     float64
	Health            Range
	MarginDrift       float64

	Competence      Range
	RiskProfile     Range
	Cooperativeness Range

	CostCuttingMaxImpact   float64
	CapexBoostMaxImpact    float64
	ManagerReplacementCost float64
	MaxOperatingMargin     float64

	EventProbability  float64
	CrisisProbability float64

	MaxDebtToEBITDA    float64
	DCFProjectionYears int
	TerminalGrowthRate float64
}

func defaultSectors() []SectorSpec {
	return []SectorSpec{
		{Name: "Technology", InitialMultiple: 12.0, MarginBoost: 0.05, GrowthBoost: 0.02},
		{Name: "Healthcare", InitialMultiple: 11.0, MarginBoost: 0.03, GrowthBoost: 0.01},
		{Name: "Consumer", InitialMultiple: 9.0},
		{Name: "Industrial", InitialMultiple: 8.5, MarginBoost: -0.02},
		{Name: "Financial Services", InitialMultiple: 10.0, MarginBoost: 0.08, GrowthBoost: 0.01},
		{Name: "Energy", InitialMultiple: 7.5, MarginBoost: -0.03, GrowthBoost: -0.01},
		{Name: "Real Estate", InitialMultiple: 8.0, MarginBoost: 0.02},
		{Name: "Retail", InitialMultiple: 7.0, MarginBoost: -0.05, GrowthBoost: 0.01},
	}
}

func baseRules() Rules {
	return Rules{
		Difficulty: DifficultyNormal,

		StartingCapital:               10_000_000,
		StartingReputation:            0.8,
		BaseDebtCapacity:              200_000_000,
		MinDebtCapacity:               25_000_000,
		DebtToNetWorthRatio:           0.75,
		ReputationMultiplier:          1.5,
		ReputationProfitSensitivity:   0.5,
		MaxQuarterlyReputationChange:  0.05,
		EmptyPortfolioReputationDrift: 0.005,
		CapitalGainsTaxRate:           0.20,
		GameQuarters:                  20,
		DealsPerQuarter:               5,
		MaxCounterOffers:              3,

		BaseInterestRate:         0.05,
		BaseMarketGrowth:         0.02,
		InitialCreditConditions:  0.7,
		InterestRateVolatility:   0.01,
		MarketVolatility:         0.05,
		VolatilityMultiplier:     1.0,
		CreditVolatility:         0.05,
		TrendVolatility:          0.03,
		TrendReversionSpeed:      0.1,
		TrendTarget:              1.0,
		SectorMultipleVolatility: 0.3,
		RiskPremium:              0.05,
		DebtSpread:               0.02,
		InterestRateBounds:       Range{Min: 0.01, Max: 0.15},
		MarketGrowthBounds:       Range{Min: -0.10, Max: 0.10},
		CreditBounds:             Range{Min: 0, Max: 1},
		TrendBounds:              Range{Min: 0.80, Max: 1.20},
		MultipleBounds:           Range{Min: 6.0, Max: 25.0},
		Sectors:                  defaultSectors(),

		Revenue:           Range{Min: 10_000_000, Max: 100_000_000},
		Margin:            Range{Min: 0.10, Max: 0.35},
		Growth:            Range{Min: -0.02, Max: 0.08},
		RevenueVolatility: 0.10,
		MinVolatility:     0.02,
		Health:            Range{Min: 0.55, Max: 0.95},
		MarginDrift:       0.01,

		Competence:      Range{Min: 0.3, Max: 1.0},
		RiskProfile:     Range{Min: 0.0, Max: 1.0},
		Cooperativeness: Range{Min: 0.3, Max: 1.0},

		CostCuttingMaxImpact:   0.15,
		CapexBoostMaxImpact:    0.10,
		ManagerReplacementCost: 2_000_000,
		MaxOperatingMargin:     0.50,

		EventProbability:  0.25,
		CrisisProbability: 0.10,

		MaxDebtToEBITDA:    5.0,
		DCFProjectionYears: 8,
		TerminalGrowthRate: 0.02,
	}
}

// ForDifficulty returns the validated rules bundle for d.
func ForDifficulty(d Difficulty) (Rules, error) {
	r := baseRules()
	switch d {
	case DifficultyEasy:
		r.Difficulty = DifficultyEasy
		r.StartingCapital = 25_000_000
		r.StartingReputation = 1.0
		r.BaseDebtCapacity = 300_000_000
		r.MinDebtCapacity = 50_000_000
		r.DebtToNetWorthRatio = 1.0
		r.ReputationMultiplier = 2.0
		r.CapitalGainsTaxRate = 0.15
		r.VolatilityMultiplier = 0.7
		r.TrendVolatility = 0.02
		r.EventProbability = 0.20
		r.CrisisProbability = 0.05
		r.MaxCounterOffers = 4
	case DifficultyNormal, "":
	case DifficultyHard:
		r.Difficulty = DifficultyHard
		r.StartingCapital = 5_000_000
		r.StartingReputation = 0.6
		r.BaseDebtCapacity = 100_000_000
		r.MinDebtCapacity = 10_000_000
		r.DebtToNetWorthRatio = 0.5
		r.ReputationMultiplier = 1.2
		r.CapitalGainsTaxRate = 0.30
		r.VolatilityMultiplier = 1.4
		r.TrendVolatility = 0.05
		r.EventProbability = 0.30
		r.CrisisProbability = 0.15
		r.MaxCounterOffers = 2
	default:
		return Rules{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, d)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// MustDifficulty is ForDifficulty for the built-in bundles, which always validate.
func MustDifficulty(d Difficulty) Rules {
	r, err := ForDifficulty(d)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rules) SectorNames() []string {
	out := make([]string, 0, len(r.Sectors))
	for _, s := range r.Sectors {
		out = append(out, s.Name)
	}
	return out
}

func (r Rules) Sector(name string) (SectorSpec, bool) {
	for _, s := range r.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return SectorSpec{}, false
}

// DefaultMultiple is used when neither the company nor the market knows a multiple.
func (r Rules) DefaultMultiple() float64 {
	return r.MultipleBounds.Mid()
}

func (r Rules) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	ranges := map[string]Range{
		"interest rate bounds": r.InterestRateBounds,
		"market growth bounds": r.MarketGrowthBounds,
		"credit bounds":        r.CreditBounds,
		"trend bounds":         r.TrendBounds,
		"multiple bounds":      r.MultipleBounds,
		"revenue":              r.Revenue,
		"margin":               r.Margin,
		"growth":               r.Growth,
		"health":               r.Health,
		"competence":           r.Competence,
		"risk profile":         r.RiskProfile,
		"cooperativeness":      r.Cooperativeness,
	}
	for name, rg := range ranges {
		check(rg.Min <= rg.Max, "%s: min %.4f > max %.4f", name, rg.Min, rg.Max)
	}
	unit := Range{Min: 0, Max: 1}
	for name, v := range map[string]float64{
		"starting reputation":  r.StartingReputation,
		"tax rate":             r.CapitalGainsTaxRate,
		"event probability":    r.EventProbability,
		"crisis probability":   r.CrisisProbability,
		"max operating margin": r.MaxOperatingMargin,
	} {
		check(unit.Contains(v), "%s must be within [0,1], got %.4f", name, v)
	}
	for name, rg := range map[string]Range{
		"credit bounds":   r.CreditBounds,
		"margin":          r.Margin,
		"health":          r.Health,
		"competence":      r.Competence,
		"risk profile":    r.RiskProfile,
		"cooperativeness": r.Cooperativeness,
	} {
		check(unit.Contains(rg.Min) && unit.Contains(rg.Max), "%s must lie within [0,1]", name)
	}
	check(r.Health.Min >= 0.5, "health floor must be at least 0.5, got %.2f", r.Health.Min)
	check(r.MultipleBounds.Min > 0, "minimum multiple must be positive")
	check(r.Revenue.Min > 0, "minimum revenue must be positive")
	check(r.StartingCapital >= 0, "starting capital must not be negative")
	check(r.BaseDebtCapacity >= 0, "base debt capacity must not be negative")
	check(r.MinDebtCapacity >= 0, "minimum debt capacity must not be negative")
	check(r.DebtToNetWorthRatio >= 0, "debt to net worth ratio must not be negative")
	check(r.ReputationMultiplier > 0, "reputation multiplier must be positive")
	check(r.MaxQuarterlyReputationChange >= 0, "reputation change cap must not be negative")
	check(r.GameQuarters > 0, "game quarters must be positive")
	check(r.DCFProjectionYears > 0, "dcf projection years must be positive")
	check(r.MaxDebtToEBITDA > 0, "max debt to ebitda must be positive")
	check(r.DealsPerQuarter >= 0, "deals per quarter must not be negative")
	check(r.MaxCounterOffers >= 0, "max counter offers must not be negative")
	check(r.TrendBounds.Contains(r.TrendTarget), "trend target %.2f outside trend bounds", r.TrendTarget)
	check(r.TrendReversionSpeed >= 0 && r.TrendReversionSpeed <= 1, "trend reversion speed must be within [0,1]")
	for name, v := range map[string]float64{
		"interest volatility":        r.InterestRateVolatility,
		"market volatility":          r.MarketVolatility,
		"volatility multiplier":      r.VolatilityMultiplier,
		"credit volatility":          r.CreditVolatility,
		"trend volatility":           r.TrendVolatility,
		"sector multiple volatility": r.SectorMultipleVolatility,
		"revenue volatility":         r.RevenueVolatility,
		"minimum volatility":         r.MinVolatility,
		"margin drift":               r.MarginDrift,
		"cost cutting impact":        r.CostCuttingMaxImpact,
		"capex impact":               r.CapexBoostMaxImpact,
		"replacement cost":           r.ManagerReplacementCost,
	} {
		check(v >= 0, "%s must not be negative, got %.4f", name, v)
	}
	check(len(r.Sectors) > 0, "at least one sector is required")
	seen := make(map[string]struct{}, len(r.Sectors))
	for _, s := range r.Sectors {
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate sector %q", s.Name))
		}
		seen[s.Name] = struct{}{}
		check(strings.TrimSpace(s.Name) != "", "sector name must not be empty")
		check(r.MultipleBounds.Contains(s.InitialMultiple), "sector %q multiple %.2f outside bounds", s.Name, s.InitialMultiple)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid rules for %s: %w", r.Difficulty, errors.Join(errs...))
	}
	return nil
}
