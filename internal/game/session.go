package game

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"pefund/internal/config"
	"pefund/internal/finance"
	"pefund/internal/stochastic"
)

// Session owns one game: market, fund, deal pool and clock. It is not safe
// for concurrent use.
type Session struct {
	Market   *Market
	Player   *Player
	Clock    Clock
	DealPool []*Company

	rules        config.Rules
	src          stochastic.Source
	logger       *slog.Logger
	gen          *Generator
	events       *EventGenerator
	pendingShock map[string]float64
	negotiations map[string]*Deal
	candidates   map[string][]Candidate
}

type Options struct {
	Source stochastic.Source
	Tables *Tables
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Source == nil {
		o.Source = stochastic.New(nil)
	}
	if o.Tables == nil {
		o.Tables = DefaultTables()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func NewSession(rules config.Rules, opts Options) *Session {
	opts = opts.withDefaults()
	s := newSession(rules, opts)
	s.Market = NewMarket(rules, opts.Source)
	s.Player = NewPlayer(rules)
	s.Clock = NewClock(rules.GameQuarters)
	s.refreshDeals()
	return s
}

// Parts is everything needed to resume a session.
type Parts struct {
	Market       MarketState
	Player       PlayerState
	Clock        Clock
	DealPool     []*Company
	PendingShock map[string]float64
}

func RestoreSession(rules config.Rules, parts Parts, opts Options) *Session {
	opts = opts.withDefaults()
	s := newSession(rules, opts)
	s.Market = RestoreMarket(rules, opts.Source, parts.Market)
	s.Player = RestorePlayer(rules, parts.Player)
	s.Clock = parts.Clock
	if s.Clock.TotalQuarters <= 0 {
		s.Clock.TotalQuarters = rules.GameQuarters
	}
	for _, c := range parts.DealPool {
		s.DealPool = append(s.DealPool, c.Clone())
	}
	s.pendingShock = maps.Clone(parts.PendingShock)
	return s
}

// Parts returns a deep copy of the resumable state.
func (s *Session) Parts() Parts {
	pool := make([]*Company, 0, len(s.DealPool))
	for _, c := range s.DealPool {
		pool = append(pool, c.Clone())
	}
	return Parts{
		Market:       s.Market.State(),
		Player:       s.Player.State(),
		Clock:        s.Clock,
		DealPool:     pool,
		PendingShock: maps.Clone(s.pendingShock),
	}
}

func newSession(rules config.Rules, opts Options) *Session {
	return &Session{
		rules:        rules,
		src:          opts.Source,
		logger:       opts.Logger,
		gen:          NewGenerator(rules, opts.Tables, opts.Source),
		events:       NewEventGenerator(rules, opts.Tables, opts.Source),
		negotiations: make(map[string]*Deal),
		candidates:   make(map[string][]Candidate),
	}
}

func (s *Session) Rules() config.Rules {
	return s.rules
}

func (s *Session) PendingShock() map[string]float64 {
	return maps.Clone(s.pendingShock)
}

func (s *Session) refreshDeals() {
	s.DealPool = s.gen.DealPool(s.rules.DealsPerQuarter, s.Market)
	clear(s.negotiations)
	clear(s.candidates)
}

type CompanyQuarter struct {
	CompanyID   string      `json:"company_id"`
	Name        string      `json:"name"`
	Performance Performance `json:"performance"`
	Valuation   float64     `json:"valuation"`
}

type QuarterReport struct {
	Quarter          int              `json:"quarter"`
	Label            string           `json:"label"`
	Companies        []CompanyQuarter `json:"companies"`
	Event            *Event           `json:"event,omitempty"`
	Response         Response         `json:"response,omitempty"`
	InterestPaid     float64          `json:"interest_paid"`
	NetWorthBefore   float64          `json:"net_worth_before"`
	NetWorthAfter    float64          `json:"net_worth_after"`
	Profit           float64          `json:"profit"`
	ReputationChange float64          `json:"reputation_change"`
	Reputation       float64          `json:"reputation"`
	InterestRate     float64          `json:"interest_rate"`
	MarketGrowth     float64          `json:"market_growth"`
	MultipleTrend    float64          `json:"multiple_trend"`
	NewDeals         int              `json:"new_deals"`
	GameOver         bool             `json:"game_over"`
}

// AdvanceQuarter runs one quarter: market, companies, event, interest,
// reputation, deal pool, clock. Valuations are refreshed before reputation
// is scored.
func (s *Session) AdvanceQuarter(respond Responder) (QuarterReport, error) {
	if s.Clock.GameOver() {
		return QuarterReport{}, ErrGameOver
	}
	p := s.Player
	report := QuarterReport{
		Quarter:        s.Clock.Quarter,
		Label:          s.Clock.String(),
		NetWorthBefore: p.NetWorth(),
	}

	s.Market.UpdateQuarter()
	cond := s.Market.Conditions()
	cond.SectorMultipliers = s.pendingShock
	s.pendingShock = nil
	for _, c := range p.Portfolio {
		perf := c.SimulateQuarter(cond, s.src)
		report.Companies = append(report.Companies, CompanyQuarter{
			CompanyID:   c.ID,
			Name:        c.Name,
			Performance: perf,
			Valuation:   c.CalculateValuation(s.Market),
		})
	}

	if e, ok := s.events.Generate(p.Portfolio); ok {
		resp := ResponseMonitor
		if respond != nil {
			resp = respond(e)
		}
		s.applyEvent(e, resp)
		report.Event = &e
		report.Response = resp
		s.logger.Debug("quarter event", "kind", e.Kind, "company", e.Company, "response", resp)
	}

	if p.CurrentDebt > 0 {
		report.InterestPaid = finance.QuarterlyInterest(p.CurrentDebt, s.Market.DebtRate())
		p.AdjustCash(-report.InterestPaid)
	}

	report.NetWorthAfter = p.NetWorth()
	report.Profit = report.NetWorthAfter - report.NetWorthBefore
	report.ReputationChange = s.reputationChange(report.Profit, p.PortfolioValue())
	p.AdjustReputation(report.ReputationChange)
	report.Reputation = p.Reputation

	s.refreshDeals()
	s.Clock.Advance()

	report.InterestRate = s.Market.InterestRate
	report.MarketGrowth = s.Market.GrowthRate
	report.MultipleTrend = s.Market.MultipleTrend
	report.NewDeals = len(s.DealPool)
	report.GameOver = s.Clock.GameOver()
	s.logger.Debug("quarter advanced",
		"quarter", report.Quarter,
		"profit", report.Profit,
		"interest", report.InterestPaid,
		"reputation_delta", report.ReputationChange,
	)
	return report, nil
}

func (s *Session) reputationChange(profit, portfolioValue float64) float64 {
	r := s.rules
	if portfolioValue <= 0 {
		switch {
		case profit > 0:
			return r.EmptyPortfolioReputationDrift
		case profit < 0:
			return -r.EmptyPortfolioReputationDrift
		default:
			return 0
		}
	}
	roq := profit / portfolioValue
	limit := r.MaxQuarterlyReputationChange
	return clamp(roq*r.ReputationProfitSensitivity, -limit, limit)
}

func (s *Session) applyEvent(e Event, resp Response) {
	switch {
	case e.Kind == EventSectorShock:
		s.pendingShock = maps.Clone(e.SectorMultipliers)
	case e.Market != nil:
		s.Market.ApplyShift(*e.Market)
		for _, c := range s.Player.Portfolio {
			c.CalculateValuation(s.Market)
		}
	case e.Effect != nil:
		c, err := s.Player.Company(e.CompanyID)
		if err != nil {
			s.logger.Warn("event target missing", "company_id", e.CompanyID)
			return
		}
		if resp == ResponseImmediate {
			e = e.Mitigated()
		}
		c.ApplyEvent(*e.Effect)
		c.CalculateValuation(s.Market)
		if e.OneTimeCost > 0 {
			s.Player.AdjustCash(-e.OneTimeCost)
		}
	}
}

// pay settles cost from cash first and borrows the remainder. Nothing changes
// on failure.
func (s *Session) pay(cost float64) (debtUsed float64, err error) {
	if cost <= 0 {
		return 0, nil
	}
	p := s.Player
	if cost > p.AvailableCapital() {
		return 0, fmt.Errorf("%w: need %.0f, have %.0f", ErrInsufficientFunds, cost, p.AvailableCapital())
	}
	if p.Cash < cost {
		debtUsed = cost - p.Cash
		if err := p.TakeDebt(debtUsed); err != nil {
			return 0, err
		}
	}
	p.AdjustCash(-cost)
	return debtUsed, nil
}

func (s *Session) PoolCompany(id string) (*Company, error) {
	for _, c := range s.DealPool {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
}

func (s *Session) Negotiation(id string) (*Deal, error) {
	d, ok := s.negotiations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDealNotFound, id)
	}
	return d, nil
}

// OpenAcquisition starts negotiating for a company in the deal pool.
func (s *Session) OpenAcquisition(companyID string) (*Deal, error) {
	if s.Clock.GameOver() {
		return nil, ErrGameOver
	}
	c, err := s.PoolCompany(companyID)
	if err != nil {
		return nil, err
	}
	return s.openNegotiation(c, DealAcquisition)
}

// OpenExit starts negotiating a sale of a portfolio company.
func (s *Session) OpenExit(companyID string) (*Deal, error) {
	if s.Clock.GameOver() {
		return nil, ErrGameOver
	}
	c, err := s.Player.Company(companyID)
	if err != nil {
		return nil, err
	}
	if !c.Acquired() {
		return nil, ErrNotAcquired
	}
	return s.openNegotiation(c, DealExit)
}

// openNegotiation allows at most one open negotiation per company.
func (s *Session) openNegotiation(c *Company, kind DealKind) (*Deal, error) {
	for _, d := range s.negotiations {
		if d.Company.ID == c.ID && !d.Closed() {
			return nil, fmt.Errorf("%w: %s", ErrNegotiationOpen, d.ID)
		}
	}
	c.CalculateValuation(s.Market)
	d := NewDeal(c, kind, s.rules.MaxCounterOffers, s.src)
	s.negotiations[d.ID] = d
	return d, nil
}

// Settlement is the outcome of a negotiation step, including the completed
// transaction when the deal closed with agreement.
type Settlement struct {
	Deal        *Deal             `json:"deal"`
	Result      NegotiationResult `json:"result"`
	Acquisition *Acquisition      `json:"acquisition,omitempty"`
	Exit        *Exit             `json:"exit,omitempty"`
}

type Acquisition struct {
	CompanyID string  `json:"company_id"`
	Price     float64 `json:"price"`
	DebtUsed  float64 `json:"debt_used"`
	Cash      float64 `json:"cash"`
}

type Exit struct {
	CompanyID string  `json:"company_id"`
	Price     float64 `json:"price"`
	CostBasis float64 `json:"cost_basis"`
	Gain      float64 `json:"gain"`
	Tax       float64 `json:"tax"`
	Proceeds  float64 `json:"proceeds"`
	MOIC      float64 `json:"moic"`
	Quarters  int     `json:"quarters_held"`
}

// Offer submits price in negotiation dealID. Acquisition offers beyond the
// fund's available capital are refused before the counterparty sees them.
func (s *Session) Offer(dealID string, price float64) (Settlement, error) {
	d, err := s.Negotiation(dealID)
	if err != nil {
		return Settlement{}, err
	}
	if d.Kind == DealAcquisition && price > s.Player.AvailableCapital() {
		return Settlement{}, fmt.Errorf("%w: offer %.0f exceeds available capital", ErrInsufficientFunds, price)
	}
	res, err := d.MakeOffer(price)
	if err != nil {
		return Settlement{}, err
	}
	return s.settle(d, res)
}

func (s *Session) AcceptAsking(dealID string) (Settlement, error) {
	d, err := s.Negotiation(dealID)
	if err != nil {
		return Settlement{}, err
	}
	if d.Kind == DealAcquisition && d.AskingPrice > s.Player.AvailableCapital() {
		return Settlement{}, fmt.Errorf("%w: asking price exceeds available capital", ErrInsufficientFunds)
	}
	res, err := d.AcceptAskingPrice()
	if err != nil {
		return Settlement{}, err
	}
	return s.settle(d, res)
}

func (s *Session) WalkAway(dealID string) (Settlement, error) {
	d, err := s.Negotiation(dealID)
	if err != nil {
		return Settlement{}, err
	}
	res, err := d.WalkAway()
	if err != nil {
		return Settlement{}, err
	}
	return s.settle(d, res)
}

func (s *Session) settle(d *Deal, res NegotiationResult) (Settlement, error) {
	out := Settlement{Deal: d, Result: res}
	if d.Closed() {
		delete(s.negotiations, d.ID)
	}
	if !res.Accepted || res.FinalPrice == nil {
		return out, nil
	}
	var err error
	switch d.Kind {
	case DealAcquisition:
		out.Acquisition, err = s.completeAcquisition(d.Company, *res.FinalPrice)
	case DealExit:
		out.Exit, err = s.completeExit(d.Company, *res.FinalPrice)
	}
	return out, err
}

func (s *Session) completeAcquisition(c *Company, price float64) (*Acquisition, error) {
	if _, err := s.PoolCompany(c.ID); err != nil {
		return nil, err
	}
	debtUsed, err := s.pay(price)
	if err != nil {
		return nil, err
	}
	c.AcquisitionPrice = ptr(price)
	c.AcquisitionQuarter = ptr(s.Clock.Quarter)
	c.CalculateValuation(s.Market)
	s.Player.AddCompany(c)
	s.DealPool = slices.DeleteFunc(s.DealPool, func(x *Company) bool { return x.ID == c.ID })
	s.Player.RecordDeal(DealRecord{
		Kind:      DealAcquisition,
		CompanyID: c.ID,
		Company:   c.Name,
		Price:     price,
		Quarter:   s.Clock.Quarter,
	})
	s.logger.Info("acquisition closed", "company", c.Name, "price", price, "debt_used", debtUsed)
	return &Acquisition{CompanyID: c.ID, Price: price, DebtUsed: debtUsed, Cash: s.Player.Cash}, nil
}

func (s *Session) completeExit(c *Company, price float64) (*Exit, error) {
	if _, err := s.Player.RemoveCompany(c.ID); err != nil {
		return nil, err
	}
	cost := 0.0
	if c.AcquisitionPrice != nil {
		cost = *c.AcquisitionPrice
	}
	tax := s.Player.CapitalGainsTax(price, cost)
	s.Player.AdjustCash(price)
	s.Player.PayTax(tax)
	held := c.HoldingQuarters(s.Clock.Quarter)
	s.Player.RecordDeal(DealRecord{
		Kind:      DealExit,
		CompanyID: c.ID,
		Company:   c.Name,
		Price:     price,
		Quarter:   s.Clock.Quarter,
		Gain:      price - cost,
		Tax:       tax,
	})
	s.logger.Info("exit closed", "company", c.Name, "price", price, "tax", tax)
	return &Exit{
		CompanyID: c.ID,
		Price:     price,
		CostBasis: cost,
		Gain:      price - cost,
		Tax:       tax,
		Proceeds:  price - tax,
		MOIC:      finance.MOIC(cost, price),
		Quarters:  held,
	}, nil
}

func (s *Session) TakeDebt(amount float64) error {
	return s.Player.TakeDebt(amount)
}

func (s *Session) RepayDebt(amount float64) error {
	return s.Player.RepayDebt(amount)
}

// operate runs op on a portfolio company under the one-per-quarter gate and
// settles the result's cost and reputation.
func (s *Session) operate(companyID string, op func(c *Company, budget float64) (OperationResult, error)) (OperationResult, error) {
	if s.Clock.GameOver() {
		return OperationResult{}, ErrGameOver
	}
	c, err := s.Player.Company(companyID)
	if err != nil {
		return OperationResult{}, err
	}
	if !c.CanOperate(s.Clock.Quarter) {
		return OperationResult{}, ErrAlreadyOperated
	}
	res, err := op(c, s.Player.AvailableCapital())
	if err != nil {
		return OperationResult{}, err
	}
	if _, err := s.pay(res.Cost); err != nil {
		return OperationResult{}, err
	}
	s.Player.AdjustReputation(res.ReputationDelta)
	c.MarkOperated(s.Clock.Quarter)
	c.CalculateValuation(s.Market)
	s.logger.Debug("operation applied", "kind", res.Kind, "company", c.Name, "cost", res.Cost)
	return res, nil
}

func (s *Session) CutCosts(companyID string, intensity float64) (OperationResult, error) {
	return s.operate(companyID, func(c *Company, _ float64) (OperationResult, error) {
		return CostCutting(c, intensity, s.rules, s.src)
	})
}

func (s *Session) Invest(companyID string, amount float64) (OperationResult, error) {
	return s.operate(companyID, func(c *Company, budget float64) (OperationResult, error) {
		if amount > budget {
			return OperationResult{}, fmt.Errorf("%w: investment %.0f exceeds available capital", ErrInsufficientFunds, amount)
		}
		return CapitalInvestment(c, amount, s.rules, s.src)
	})
}

// ReplaceManager hires candidate index from the list last issued by
// ManagerCandidates for the company. Issued lists expire with the quarter.
func (s *Session) ReplaceManager(companyID string, index int) (OperationResult, error) {
	issued := s.candidates[companyID]
	if index < 0 || index >= len(issued) {
		return OperationResult{}, fmt.Errorf("%w: %d", ErrUnknownCandidate, index)
	}
	next := issued[index].Manager
	res, err := s.operate(companyID, func(c *Company, budget float64) (OperationResult, error) {
		return ReplaceManagement(c, next, budget, s.rules, s.src)
	})
	if err == nil {
		delete(s.candidates, companyID)
	}
	return res, err
}

func (s *Session) PursueStrategy(companyID string, strategy Strategy) (OperationResult, error) {
	return s.operate(companyID, func(c *Company, budget float64) (OperationResult, error) {
		return GrowthStrategy(c, strategy, budget, s.rules, s.src)
	})
}

// ManagerCandidates proposes replacements for a portfolio company's manager.
func (s *Session) ManagerCandidates(companyID string, n int) ([]Candidate, error) {
	c, err := s.Player.Company(companyID)
	if err != nil {
		return nil, err
	}
	out := s.gen.Candidates(c.Manager, n)
	s.candidates[c.ID] = slices.Clone(out)
	return out, nil
}

func (s *Session) DCF(companyID string) (float64, error) {
	c, err := s.Player.Company(companyID)
	if err != nil {
		if c, err = s.PoolCompany(companyID); err != nil {
			return 0, err
		}
	}
	return DCFValuation(c, s.Market), nil
}

type Summary struct {
	Quarters        int     `json:"quarters"`
	StartingCapital float64 `json:"starting_capital"`
	NetWorth        float64 `json:"net_worth"`
	TotalReturn     float64 `json:"total_return"`
	AnnualReturn    float64 `json:"annual_return"`
	Cash            float64 `json:"cash"`
	Debt            float64 `json:"debt"`
	PortfolioValue  float64 `json:"portfolio_value"`
	Holdings        int     `json:"holdings"`
	Acquisitions    int     `json:"acquisitions"`
	Exits           int     `json:"exits"`
	TaxesPaid       float64 `json:"taxes_paid"`
	Reputation      float64 `json:"reputation"`
}

func (s *Session) Summary() Summary {
	p := s.Player
	sum := Summary{
		Quarters:        s.Clock.Quarter,
		StartingCapital: s.rules.StartingCapital,
		NetWorth:        p.NetWorth(),
		Cash:            p.Cash,
		Debt:            p.CurrentDebt,
		PortfolioValue:  p.PortfolioValue(),
		Holdings:        len(p.Portfolio),
		TaxesPaid:       p.TotalTaxesPaid,
		Reputation:      p.Reputation,
	}
	for _, r := range p.DealHistory {
		switch r.Kind {
		case DealAcquisition:
			sum.Acquisitions++
		case DealExit:
			sum.Exits++
		}
	}
	if sum.StartingCapital > 0 {
		sum.TotalReturn = sum.NetWorth/sum.StartingCapital - 1
		if sum.Quarters > 0 && sum.NetWorth > 0 {
			years := float64(sum.Quarters) / quartersPerYear
			sum.AnnualReturn = math.Pow(sum.NetWorth/sum.StartingCapital, 1/years) - 1
		}
	}
	return sum
}
