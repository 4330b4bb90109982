// Package finance holds the fund's leverage, return and discounted cash flow
// arithmetic. Rates are annual unless a name says otherwise.
package finance

import (
	"errors"
	"math"
)

var ErrNoConvergence = errors.New("irr did not converge")

func MaxLeverage(ebitda, debtToEBITDA float64) float64 {
	return max(0, ebitda) * debtToEBITDA
}

// QuarterlyInterest is one quarter of interest on debt.
func QuarterlyInterest(debt, annualRate float64) float64 {
	return debt * annualRate / 4
}

// DebtService is the level quarterly payment that amortises debt over years.
func DebtService(debt, annualRate float64, years int) float64 {
	if debt <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * 4)
	q := annualRate / 4
	if q <= 0 {
		return debt / n
	}
	growth := math.Pow(1+q, n)
	return debt * q * growth / (growth - 1)
}

// IRR solves for the per-period rate that zeroes the NPV of flows, where
// flows[i] occurs at period i.
func IRR(flows []float64) (float64, error) {
	if len(flows) < 2 {
		return 0, ErrNoConvergence
	}
	const (
		tolerance     = 1e-4
		maxIterations = 100
	)
	rate := 0.1
	for i := 0; i < maxIterations; i++ {
		var npv, slope float64
		for t, cf := range flows {
			ft := float64(t)
			npv += cf / math.Pow(1+rate, ft)
			slope -= ft * cf / math.Pow(1+rate, ft+1)
		}
		if math.Abs(npv) < tolerance {
			return rate, nil
		}
		if math.Abs(slope) < 1e-10 {
			break
		}
		next := rate - npv/slope
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			break
		}
		rate = next
	}
	return rate, ErrNoConvergence
}

// MOIC is the multiple on invested capital; 0 when nothing was invested.
func MOIC(invested, proceeds float64) float64 {
	if invested <= 0 {
		return 0
	}
	return proceeds / invested
}

func EquityValue(enterpriseValue, debt, cash float64) float64 {
	return enterpriseValue - debt + cash
}

type LeveragedReturn struct {
	EquityReturn float64 `json:"equity_return"`
	AnnualIRR    float64 `json:"annual_irr"`
	MOIC         float64 `json:"moic"`
	Interest     float64 `json:"interest"`
	Converged    bool    `json:"converged"`
}

// LeveragedReturns breaks down a buyout held for quartersHeld quarters with
// interest-only debt repaid from the exit.
func LeveragedReturns(exitPrice, debt, equity float64, quartersHeld int, annualRate float64) LeveragedReturn {
	quartersHeld = max(1, quartersHeld)
	interest := QuarterlyInterest(debt, annualRate) * float64(quartersHeld)
	proceeds := exitPrice - debt

	flows := make([]float64, quartersHeld+1)
	flows[0] = -equity
	flows[quartersHeld] = proceeds
	irr, err := IRR(flows)

	return LeveragedReturn{
		EquityReturn: proceeds - equity - interest,
		AnnualIRR:    irr * 4,
		MOIC:         MOIC(equity, proceeds),
		Interest:     interest,
		Converged:    err == nil,
	}
}
