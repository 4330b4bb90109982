package game

import (
	"errors"
	"math"
)

const (
	// HealthValuationFloor is the share of value kept at zero operational health.
	HealthValuationFloor = 0.85

	quartersPerYear = 4
)

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidIntensity     = errors.New("intensity must be within [0, 1]")
	ErrDebtCapacityExceeded = errors.New("debt capacity exceeded")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientDebt     = errors.New("repayment exceeds outstanding debt")
	ErrDealClosed           = errors.New("deal already closed")
	ErrDealNotFound         = errors.New("deal not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrAlreadyOperated      = errors.New("company already operated this quarter")
	ErrUnknownStrategy      = errors.New("unknown growth strategy")
	ErrUnknownSector        = errors.New("unknown sector")
	ErrGameOver             = errors.New("game over")
	ErrNotAcquired          = errors.New("company has no acquisition record")
	ErrNegotiationOpen      = errors.New("company already has an open negotiation")
	ErrUnknownCandidate     = errors.New("no such issued manager candidate")
)

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func ptr[T any](v T) *T {
	return &v
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
