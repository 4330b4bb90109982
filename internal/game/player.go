package game

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"pefund/internal/config"
)

type DealRecord struct {
	ID        string   `json:"id"`
	Kind      DealKind `json:"kind"`
	CompanyID string   `json:"company_id"`
	Company   string   `json:"company"`
	Price     float64  `json:"price"`
	Quarter   int      `json:"quarter"`
	Gain      float64  `json:"gain,omitempty"`
	Tax       float64  `json:"tax,omitempty"`
}

// PlayerState is the persisted part of a Player.
type PlayerState struct {
	Cash             float64           `json:"cash"`
	CurrentDebt      float64           `json:"current_debt"`
	BaseDebtCapacity float64           `json:"base_debt_capacity"`
	Reputation       float64           `json:"reputation"`
	Portfolio        []*Company        `json:"portfolio"`
	DealHistory      []DealRecord      `json:"deal_history"`
	TotalTaxesPaid   float64           `json:"total_taxes_paid"`
	Difficulty       config.Difficulty `json:"difficulty"`
}

type Player struct {
	PlayerState

	rules config.Rules
}

func NewPlayer(rules config.Rules) *Player {
	return &Player{
		PlayerState: PlayerState{
			Cash:             rules.StartingCapital,
			BaseDebtCapacity: rules.BaseDebtCapacity,
			Reputation:       clamp01(rules.StartingReputation),
			Difficulty:       rules.Difficulty,
		},
		rules: rules,
	}
}

func RestorePlayer(rules config.Rules, state PlayerState) *Player {
	p := &Player{PlayerState: state.clone(), rules: rules}
	p.Reputation = clamp01(p.Reputation)
	p.CurrentDebt = max(0, p.CurrentDebt)
	p.Difficulty = rules.Difficulty
	return p
}

func (s PlayerState) clone() PlayerState {
	out := s
	out.Portfolio = make([]*Company, 0, len(s.Portfolio))
	for _, c := range s.Portfolio {
		out.Portfolio = append(out.Portfolio, c.Clone())
	}
	out.DealHistory = slices.Clone(s.DealHistory)
	return out
}

// State returns a deep copy of the player's data.
func (p *Player) State() PlayerState {
	return p.PlayerState.clone()
}

func (p *Player) AdjustCash(delta float64) {
	p.Cash += delta
}

func (p *Player) AdjustReputation(delta float64) {
	p.Reputation = clamp01(p.Reputation + delta)
}

func (p *Player) PortfolioValue() float64 {
	total := 0.0
	for _, c := range p.Portfolio {
		total += c.CurrentValuation
	}
	return total
}

func (p *Player) NetWorth() float64 {
	return p.Cash + p.PortfolioValue() - p.CurrentDebt
}

// DebtCapacity is derived on every call from net worth and reputation.
func (p *Player) DebtCapacity() float64 {
	reputationFactor := 0.5 + (p.Reputation*p.rules.ReputationMultiplier - 0.5)
	fromNetWorth := max(0, p.NetWorth()) * p.rules.DebtToNetWorthRatio * reputationFactor
	return max(p.rules.MinDebtCapacity, p.BaseDebtCapacity+fromNetWorth)
}

// TakeDebt draws amount in full or not at all.
func (p *Player) TakeDebt(amount float64) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	capacity := p.DebtCapacity()
	if p.CurrentDebt+amount > capacity {
		return fmt.Errorf("%w: draw %.0f on %.0f outstanding, capacity %.0f",
			ErrDebtCapacityExceeded, amount, p.CurrentDebt, capacity)
	}
	p.CurrentDebt += amount
	p.Cash += amount
	return nil
}

func (p *Player) RepayDebt(amount float64) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount > p.Cash {
		return ErrInsufficientFunds
	}
	if amount > p.CurrentDebt {
		return ErrInsufficientDebt
	}
	p.Cash -= amount
	p.CurrentDebt -= amount
	return nil
}

func (p *Player) AvailableCapital() float64 {
	return p.Cash + max(0, p.DebtCapacity()-p.CurrentDebt)
}

func (p *Player) DebtUtilization() float64 {
	capacity := p.DebtCapacity()
	if capacity <= 0 {
		return 0
	}
	return p.CurrentDebt / capacity
}

// CapitalGainsTax taxes gains only; losses are neither taxed nor rebated.
func (p *Player) CapitalGainsTax(salePrice, costBasis float64) float64 {
	return CapitalGainsTax(salePrice, costBasis, p.rules.CapitalGainsTaxRate)
}

func CapitalGainsTax(salePrice, costBasis, rate float64) float64 {
	gain := salePrice - costBasis
	if gain <= 0 {
		return 0
	}
	return gain * rate
}

func (p *Player) PayTax(amount float64) {
	if amount <= 0 {
		return
	}
	p.Cash -= amount
	p.TotalTaxesPaid += amount
}

func (p *Player) AddCompany(c *Company) {
	p.Portfolio = append(p.Portfolio, c)
}

func (p *Player) Company(id string) (*Company, error) {
	for _, c := range p.Portfolio {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
}

func (p *Player) RemoveCompany(id string) (*Company, error) {
	for i, c := range p.Portfolio {
		if c.ID == id {
			p.Portfolio = slices.Delete(p.Portfolio, i, i+1)
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, id)
}

func (p *Player) RecordDeal(r DealRecord) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	p.DealHistory = append(p.DealHistory, r)
}
