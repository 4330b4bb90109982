package game

import (
	"math"

	"github.com/google/uuid"

	"pefund/internal/stochastic"
)

type DealKind string

const (
	DealAcquisition DealKind = "acquisition"
	DealExit        DealKind = "exit"
)

type DealStatus string

const (
	DealOpen     DealStatus = "open"
	DealAccepted DealStatus = "accepted"
	DealRejected DealStatus = "rejected"
)

// Deal is one bounded negotiation over a company. For acquisitions the
// counterparty is a seller with a hidden floor; for exits it is a buyer with a
// hidden ceiling. Counters always move toward that hidden price.
type Deal struct {
	ID               string     `json:"id"`
	Kind             DealKind   `json:"kind"`
	Company          *Company   `json:"company"`
	FairValue        float64    `json:"fair_value"`
	AskingPrice      float64    `json:"asking_price"`
	CurrentOffer     *float64   `json:"current_offer,omitempty"`
	CounterOffers    int        `json:"counter_offers"`
	MaxCounterOffers int        `json:"max_counter_offers"`
	Status           DealStatus `json:"status"`
	FinalPrice       *float64   `json:"final_price,omitempty"`

	reservation   float64
	hiddenQuality float64
	src           stochastic.Source
}

type NegotiationResult struct {
	Status          DealStatus `json:"status"`
	Accepted        bool       `json:"accepted"`
	FinalPrice      *float64   `json:"final_price,omitempty"`
	CounterOffer    *float64   `json:"counter_offer,omitempty"`
	RoundsRemaining int        `json:"rounds_remaining"`
}

// NewDeal snapshots the company's current valuation and draws the hidden
// reservation price from it.
func NewDeal(c *Company, kind DealKind, maxCounterOffers int, src stochastic.Source) *Deal {
	return NewDealAt(c, kind, c.CurrentValuation*src.Uniform(0.8, 1.2), maxCounterOffers, src)
}

// NewDealAt is NewDeal with a known reservation price.
func NewDealAt(c *Company, kind DealKind, reservation float64, maxCounterOffers int, src stochastic.Source) *Deal {
	d := &Deal{
		ID:               uuid.NewString(),
		Kind:             kind,
		Company:          c,
		FairValue:        c.CurrentValuation,
		MaxCounterOffers: max(0, maxCounterOffers),
		Status:           DealOpen,
		reservation:      reservation,
		src:              src,
	}
	if kind == DealExit {
		d.AskingPrice = d.FairValue * src.Uniform(0.9, 1.1)
	} else {
		d.AskingPrice = reservation * src.Uniform(1.1, 1.3)
	}
	d.hiddenQuality = src.Normal(1.0, 0.15)
	return d
}

func (d *Deal) Closed() bool {
	return d.Status != DealOpen
}

func (d *Deal) Accepted() bool {
	return d.Status == DealAccepted
}

// ReservationPrice exposes the hidden price for tests and post-mortems.
func (d *Deal) ReservationPrice() float64 {
	return d.reservation
}

func (d *Deal) acceptable(price float64) bool {
	if d.Kind == DealExit {
		return price <= d.reservation
	}
	return price >= d.reservation
}

// MakeOffer proposes price. The counterparty accepts, walks once the counter
// budget is spent, or counters somewhere between price and its hidden price.
func (d *Deal) MakeOffer(price float64) (NegotiationResult, error) {
	if d.Closed() {
		return NegotiationResult{}, ErrDealClosed
	}
	if !validAmount(price) {
		return NegotiationResult{}, ErrInvalidAmount
	}
	d.CurrentOffer = ptr(price)

	if d.acceptable(price) {
		return d.close(DealAccepted, price), nil
	}
	if d.CounterOffers >= d.MaxCounterOffers {
		return d.close(DealRejected, 0), nil
	}
	counter := price + (d.reservation-price)*d.src.Uniform(0.6, 0.8)
	d.CounterOffers++
	d.AskingPrice = counter
	return NegotiationResult{
		Status:          DealOpen,
		CounterOffer:    ptr(counter),
		RoundsRemaining: d.MaxCounterOffers - d.CounterOffers,
	}, nil
}

// AcceptAskingPrice closes at the current asking (or latest counter) price.
func (d *Deal) AcceptAskingPrice() (NegotiationResult, error) {
	if d.Closed() {
		return NegotiationResult{}, ErrDealClosed
	}
	d.CurrentOffer = ptr(d.AskingPrice)
	return d.close(DealAccepted, d.AskingPrice), nil
}

func (d *Deal) WalkAway() (NegotiationResult, error) {
	if d.Closed() {
		return NegotiationResult{}, ErrDealClosed
	}
	return d.close(DealRejected, 0), nil
}

func (d *Deal) close(status DealStatus, price float64) NegotiationResult {
	d.Status = status
	res := NegotiationResult{Status: status}
	if status == DealAccepted {
		d.FinalPrice = ptr(price)
		res.Accepted = true
		res.FinalPrice = ptr(price)
	}
	return res
}

// QualityScore rates a closed deal: above 1 is a good deal for the player.
func (d *Deal) QualityScore() float64 {
	if !d.Accepted() || d.FinalPrice == nil || d.FairValue <= 0 || *d.FinalPrice <= 0 {
		return 0
	}
	ratio := *d.FinalPrice / d.FairValue
	if d.Kind == DealExit {
		return ratio * d.hiddenQuality
	}
	return d.hiddenQuality / ratio
}

// Premium is the asking price relative to fair value.
func (d *Deal) Premium() float64 {
	if d.FairValue <= 0 {
		return 0
	}
	return d.AskingPrice/d.FairValue - 1
}

// Gap is the distance between the asking price and the player's latest offer.
func (d *Deal) Gap() float64 {
	if d.CurrentOffer == nil {
		return d.AskingPrice
	}
	return math.Abs(d.AskingPrice - *d.CurrentOffer)
}
