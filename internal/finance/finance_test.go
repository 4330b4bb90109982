package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeverageHelpers(t *testing.T) {
	assert.Equal(t, 50.0, MaxLeverage(10, 5))
	assert.Zero(t, MaxLeverage(-10, 5))
	assert.InDelta(t, 1.75, QuarterlyInterest(100, 0.07), 1e-12)
	assert.Equal(t, 30.0, EquityValue(100, 80, 10))
}

func TestDebtService(t *testing.T) {
	assert.Zero(t, DebtService(0, 0.08, 5))
	assert.Zero(t, DebtService(100, 0.08, 0))
	assert.InDelta(t, 5.0, DebtService(100, 0, 5), 1e-12)

	payment := DebtService(1_000_000, 0.08, 5)
	// 20 payments at 2% per quarter
	assert.InDelta(t, 61_156.72, payment, 0.01)
	assert.Greater(t, payment*20, 1_000_000.0)
}

func TestIRR(t *testing.T) {
	rate, err := IRR([]float64{-100, 110})
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rate, 1e-4)

	rate, err = IRR([]float64{-100, 0, 0, 0, 146.41})
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rate, 1e-4)

	rate, err = IRR([]float64{-100, 90})
	require.NoError(t, err)
	assert.InDelta(t, -0.10, rate, 1e-4)

	_, err = IRR([]float64{-100})
	assert.ErrorIs(t, err, ErrNoConvergence)

	_, err = IRR([]float64{100, 100})
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestMOIC(t *testing.T) {
	assert.Equal(t, 2.5, MOIC(40, 100))
	assert.Zero(t, MOIC(0, 100))
}

func TestLeveragedReturns(t *testing.T) {
	r := LeveragedReturns(150, 60, 40, 4, 0.08)

	assert.InDelta(t, 4.8, r.Interest, 1e-9)
	assert.InDelta(t, 45.2, r.EquityReturn, 1e-9)
	assert.InDelta(t, 2.25, r.MOIC, 1e-12)
	assert.True(t, r.Converged)
	// 2.25x over four quarters
	assert.InDelta(t, (math.Pow(2.25, 0.25)-1)*4, r.AnnualIRR, 1e-3)
}

func TestDCF(t *testing.T) {
	a := DefaultAssumptions()

	assert.InDelta(t, 0.0824, AnnualizedGrowth(0.02), 1e-4)
	assert.InDelta(t, 100.0, PresentValue([]float64{110}, 0.10), 1e-9)
	assert.InDelta(t, 102.0/0.08, TerminalValue(100, 0.02, 0.10), 1e-9)
	// rate at or below growth pulls growth a point under the rate
	assert.InDelta(t, 100*1.04/0.01, TerminalValue(100, 0.06, 0.05), 1e-6)

	flows := ProjectFreeCashFlows(10, 0.01, 0.2, a)
	require.Len(t, flows, a.Years)
	assert.Greater(t, flows[len(flows)-1], flows[0])

	ev := EnterpriseValue(10, 0.01, 0.2, 0.10, a)
	assert.Greater(t, ev, PresentValue(flows, 0.10))

	a.Years = 0
	assert.Nil(t, ProjectFreeCashFlows(10, 0.01, 0.2, a))
	assert.Zero(t, EnterpriseValue(10, 0.01, 0.2, 0.10, a))
}

func TestEnterpriseValueFloorsAtZero(t *testing.T) {
	// Heavy capex on a thin margin burns cash every year.
	a := DefaultAssumptions()
	a.CapexRate = 0.5
	assert.Zero(t, EnterpriseValue(10, 0.01, 0.05, 0.10, a))
}
