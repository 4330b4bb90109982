package game

import (
	"fmt"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

// Generator produces deal candidates and managers from the session rules.
type Generator struct {
	rules  config.Rules
	tables *Tables
	src    stochastic.Source
}

func NewGenerator(rules config.Rules, tables *Tables, src stochastic.Source) *Generator {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Generator{rules: rules, tables: tables, src: src}
}

func (g *Generator) Tables() *Tables {
	return g.tables
}

func (g *Generator) Manager() Manager {
	return GenerateManager(g.rules, g.tables, g.src)
}

// Company draws a company in sector, or in a random sector when sector is empty.
func (g *Generator) Company(sector string) (*Company, error) {
	var spec config.SectorSpec
	if sector == "" {
		spec = stochastic.Pick(g.src, g.rules.Sectors)
	} else {
		s, ok := g.rules.Sector(sector)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSector, sector)
		}
		spec = s
	}
	r := g.rules
	margin := g.src.Uniform(r.Margin.Min, r.Margin.Max) + spec.MarginBoost
	return NewCompany(CompanySpec{
		Name:       g.tables.CompanyName(g.src),
		Sector:     spec.Name,
		Revenue:    g.src.Uniform(r.Revenue.Min, r.Revenue.Max),
		Margin:     clamp(margin, 0.05, r.MaxOperatingMargin),
		Growth:     g.src.Uniform(r.Growth.Min, r.Growth.Max) + spec.GrowthBoost,
		Volatility: r.RevenueVolatility * g.src.Uniform(0.8, 1.2),
		Health:     g.src.Uniform(r.Health.Min, r.Health.Max),
		Manager:    g.Manager(),
	}), nil
}

// DealPool returns n freshly valued acquisition candidates.
func (g *Generator) DealPool(n int, ms MultipleSource) []*Company {
	out := make([]*Company, 0, max(0, n))
	for i := 0; i < n; i++ {
		c, err := g.Company("")
		if err != nil {
			continue
		}
		c.CalculateValuation(ms)
		out = append(out, c)
	}
	return out
}

func (g *Generator) Candidates(current Manager, n int) []Candidate {
	return Candidates(current, n, g.tables, g.src)
}
