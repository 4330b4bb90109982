package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pefund/internal/config"
)

func testRules(t *testing.T) config.Rules {
	t.Helper()
	r, err := config.ForDifficulty(config.DifficultyNormal)
	require.NoError(t, err)
	return r
}

type fixedMultiples struct {
	sectors  map[string]float64
	fallback float64
	trend    float64
}

func (f fixedMultiples) SectorMultiple(sector string) (float64, bool) {
	v, ok := f.sectors[sector]
	return v, ok
}

func (f fixedMultiples) DefaultMultiple() float64 { return f.fallback }
func (f fixedMultiples) Trend() float64           { return f.trend }

func steadyManager() Manager {
	return NewManager("Ada Stone", 0.5, 0, 0.5)
}

func newTestCompany(revenue, margin float64) *Company {
	return NewCompany(CompanySpec{
		Name:       "Acme Holdings",
		Sector:     "Technology",
		Revenue:    revenue,
		Margin:     margin,
		Growth:     0.02,
		Volatility: 0.1,
		Health:     1,
		Manager:    steadyManager(),
	})
}
