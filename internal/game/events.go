package game

import (
	"math"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

type EventKind string

const (
	EventMarketShift  EventKind = "market_shift"
	EventMarketCrash  EventKind = "market_crash"
	EventMarketBoom   EventKind = "market_boom"
	EventSectorShock  EventKind = "sector_shock"
	EventOperational  EventKind = "operational"
	EventCrisis       EventKind = "crisis"
	EventBreakthrough EventKind = "breakthrough"
	EventManagement   EventKind = "management"
	EventRegulatory   EventKind = "regulatory"
)

var (
	allEventKinds = []EventKind{
		EventMarketShift, EventMarketCrash, EventMarketBoom, EventSectorShock,
		EventOperational, EventCrisis, EventBreakthrough, EventManagement, EventRegulatory,
	}
	crisisEventKinds = []EventKind{EventCrisis, EventMarketCrash, EventManagement}
)

// TargetsMarket reports whether kind acts on the market rather than a company.
func (k EventKind) TargetsMarket() bool {
	switch k {
	case EventMarketShift, EventMarketCrash, EventMarketBoom, EventSectorShock:
		return true
	default:
		return false
	}
}

// Event is a one-off shock. Exactly one payload is set, selected by Kind:
// Market for market kinds other than sector shocks, SectorMultipliers for
// sector shocks and Effect for company kinds.
type Event struct {
	Kind              EventKind          `json:"kind"`
	Headline          string             `json:"headline"`
	CompanyID         string             `json:"company_id,omitempty"`
	Company           string             `json:"company,omitempty"`
	Severity          float64            `json:"severity,omitempty"`
	Market            *MarketShift       `json:"market,omitempty"`
	SectorMultipliers map[string]float64 `json:"sector_multipliers,omitempty"`
	Effect            *CompanyEffect     `json:"effect,omitempty"`
	OneTimeCost       float64            `json:"one_time_cost,omitempty"`
	RequiresAction    bool               `json:"requires_action,omitempty"`
}

type Response string

const (
	ResponseMonitor   Response = "monitor"
	ResponseImmediate Response = "immediate"
)

// Responder chooses how the player reacts to an event. A nil Responder monitors.
type Responder func(Event) Response

// Mitigated halves every negative company impact.
func (e Event) Mitigated() Event {
	if e.Effect == nil {
		return e
	}
	eff := *e.Effect
	halve := func(v float64) float64 {
		if v < 0 {
			return v * 0.5
		}
		return v
	}
	eff.RevenueImpact = halve(eff.RevenueImpact)
	eff.MarginImpact = halve(eff.MarginImpact)
	eff.GrowthImpact = halve(eff.GrowthImpact)
	eff.HealthImpact = halve(eff.HealthImpact)
	e.Effect = &eff
	return e
}

type EventGenerator struct {
	rules  config.Rules
	tables *Tables
	src    stochastic.Source
}

func NewEventGenerator(rules config.Rules, tables *Tables, src stochastic.Source) *EventGenerator {
	if tables == nil {
		tables = DefaultTables()
	}
	return &EventGenerator{rules: rules, tables: tables, src: src}
}

// Generate rolls for this quarter's event. Company events need a non-empty
// portfolio; when none is available no event happens.
func (g *EventGenerator) Generate(portfolio []*Company) (Event, bool) {
	if !stochastic.Chance(g.src, g.rules.EventProbability) {
		return Event{}, false
	}
	kinds := allEventKinds
	if stochastic.Chance(g.src, g.rules.CrisisProbability) {
		kinds = crisisEventKinds
	}
	return g.Build(stochastic.Pick(g.src, kinds), portfolio)
}

// Build draws an event of a given kind.
func (g *EventGenerator) Build(kind EventKind, portfolio []*Company) (Event, bool) {
	if kind.TargetsMarket() {
		return g.marketEvent(kind), true
	}
	if len(portfolio) == 0 {
		return Event{}, false
	}
	c := stochastic.Pick(g.src, portfolio)
	e := g.companyEvent(kind, c)
	e.CompanyID = c.ID
	e.Company = c.Name
	e.Headline = g.tables.Headline(kind, c.Name, nil, g.src)
	return e, true
}

func (g *EventGenerator) marketEvent(kind EventKind) Event {
	src := g.src
	e := Event{Kind: kind}
	switch kind {
	case EventMarketShift:
		e.Market = &MarketShift{
			GrowthDelta:   src.Uniform(-0.03, 0.03),
			InterestDelta: src.Uniform(-0.01, 0.01),
		}
	case EventMarketCrash:
		e.Severity = src.Uniform(0.10, 0.30)
		e.Market = &MarketShift{
			GrowthDelta:    -e.Severity,
			MultipleChange: -src.Uniform(0.10, 0.20),
			CreditDelta:    -src.Uniform(0.10, 0.30),
		}
	case EventMarketBoom:
		e.Severity = src.Uniform(0.05, 0.15)
		e.Market = &MarketShift{
			GrowthDelta:    e.Severity,
			MultipleChange: src.Uniform(0.05, 0.15),
			CreditDelta:    src.Uniform(0.05, 0.15),
		}
	case EventSectorShock:
		names := g.rules.SectorNames()
		stochastic.Shuffle(src, names)
		n := min(len(names), 1+src.IntN(3))
		e.SectorMultipliers = make(map[string]float64, n)
		for _, name := range names[:n] {
			e.SectorMultipliers[name] = src.Uniform(0.5, 1.5)
		}
		e.Headline = g.tables.Headline(kind, "", names[:n], src)
		return e
	}
	e.Headline = g.tables.Headline(kind, "", nil, src)
	return e
}

func (g *EventGenerator) companyEvent(kind EventKind, c *Company) Event {
	src := g.src
	e := Event{Kind: kind}
	switch kind {
	case EventOperational:
		impact := src.Uniform(-0.10, 0.10)
		e.Severity = math.Abs(impact)
		e.Effect = &CompanyEffect{RevenueImpact: impact, MarginImpact: impact * 0.5}
	case EventCrisis:
		e.Severity = src.Uniform(0.15, 0.40)
		e.Effect = &CompanyEffect{
			RevenueImpact: -e.Severity,
			MarginImpact:  -e.Severity * 0.3,
			GrowthImpact:  -0.03,
		}
	case EventBreakthrough:
		e.Severity = src.Uniform(0.10, 0.30)
		e.Effect = &CompanyEffect{
			RevenueImpact: e.Severity * 0.5,
			MarginImpact:  e.Severity * 0.2,
			GrowthImpact:  0.02,
		}
	case EventManagement:
		e.Severity = src.Uniform(0, 1)
		growth := -0.03
		switch {
		case e.Severity < 0.3:
			growth = -0.01
		case e.Severity < 0.7:
			growth = -0.02
		}
		e.Effect = &CompanyEffect{GrowthImpact: growth}
		e.RequiresAction = e.Severity > 0.5
	case EventRegulatory:
		impact := src.Uniform(-0.15, 0.05)
		e.Severity = math.Abs(impact)
		e.Effect = &CompanyEffect{MarginImpact: impact}
		if impact < 0 {
			e.OneTimeCost = -impact * c.Revenue * 0.1
		}
	}
	return e
}
