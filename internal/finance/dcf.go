package finance

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type Assumptions struct {
	Years          int
	TerminalGrowth float64
	TaxRate        float64
	CapexRate      float64
	NWCRate        float64
}

func DefaultAssumptions() Assumptions {
	return Assumptions{
		Years:          8,
		TerminalGrowth: 0.02,
		TaxRate:        0.25,
		CapexRate:      0.05,
		NWCRate:        0.10,
	}
}

// AnnualizedGrowth compounds a quarterly rate over four quarters.
func AnnualizedGrowth(quarterly float64) float64 {
	return math.Pow(1+quarterly, 4) - 1
}

// ProjectFreeCashFlows projects yearly free cash flow from current EBITDA and
// a quarterly growth rate.
func ProjectFreeCashFlows(ebitda, quarterlyGrowth, margin float64, a Assumptions) []float64 {
	if a.Years <= 0 {
		return nil
	}
	growth := AnnualizedGrowth(quarterlyGrowth)
	out := make([]float64, 0, a.Years)
	for y := 0; y < a.Years; y++ {
		ebitda *= 1 + growth
		revenue := 0.0
		if margin > 0 {
			revenue = ebitda / margin
		}
		fcf := ebitda*(1-a.TaxRate) - revenue*a.CapexRate - revenue*growth*a.NWCRate
		out = append(out, fcf)
	}
	return out
}

// PresentValue discounts flows[i] at the end of year i+1.
func PresentValue(flows []float64, rate float64) float64 {
	discounted := make([]float64, len(flows))
	for i, cf := range flows {
		discounted[i] = cf / math.Pow(1+rate, float64(i+1))
	}
	return floats.Sum(discounted)
}

// TerminalValue uses perpetuity growth. When rate <= growth the growth is
// pulled to one point below the rate.
func TerminalValue(finalFlow, growth, rate float64) float64 {
	if rate <= growth {
		growth = rate - 0.01
	}
	return finalFlow * (1 + growth) / (rate - growth)
}

// EnterpriseValue is the floored present value of projected flows plus the
// discounted terminal value.
func EnterpriseValue(ebitda, quarterlyGrowth, margin, rate float64, a Assumptions) float64 {
	flows := ProjectFreeCashFlows(ebitda, quarterlyGrowth, margin, a)
	if len(flows) == 0 {
		return 0
	}
	tv := TerminalValue(flows[len(flows)-1], a.TerminalGrowth, rate)
	ev := PresentValue(flows, rate) + tv/math.Pow(1+rate, float64(len(flows)))
	return max(0, ev)
}
