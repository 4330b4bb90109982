package game

import (
	"pefund/internal/config"
	"pefund/internal/finance"
)

func dcfAssumptions(rules config.Rules) finance.Assumptions {
	a := finance.DefaultAssumptions()
	a.Years = rules.DCFProjectionYears
	a.TerminalGrowth = rules.TerminalGrowthRate
	return a
}

// DCFValuation values c by discounted cash flow at the market discount rate.
func DCFValuation(c *Company, m *Market) float64 {
	return finance.EnterpriseValue(c.EBITDA(), c.GrowthRate, c.EBITDAMargin, m.DiscountRate(), dcfAssumptions(m.rules))
}

// MaxLeverage is the debt c's EBITDA can support under the rules.
func MaxLeverage(c *Company, rules config.Rules) float64 {
	return finance.MaxLeverage(c.EBITDA(), rules.MaxDebtToEBITDA)
}
