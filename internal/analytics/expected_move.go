package analytics

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/chainscope/internal/chain"
)

// ExpectedMove is the one-expiration range implied by the at-the-money straddle.
type ExpectedMove struct {
	ATMStrike      float64 `json:"atm_strike"`
	CallPrice      float64 `json:"call_price"`
	PutPrice       float64 `json:"put_price"`
	Abs            float64 `json:"abs"`
	Percent        float64 `json:"percent"`
	UpperBound     float64 `json:"upper_bound"`
	LowerBound     float64 `json:"lower_bound"`
	CallLegMissing bool    `json:"call_leg_missing"`
	PutLegMissing  bool    `json:"put_leg_missing"`
}

// Degraded reports whether the straddle was priced with a missing leg.
func (e ExpectedMove) Degraded() bool {
	return e.CallLegMissing || e.PutLegMissing
}

// ValidateSpot returns ErrInvalidSpotPrice unless spot is finite and positive.
func ValidateSpot(spot float64) error {
	if math.IsNaN(spot) || math.IsInf(spot, 0) || spot <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpotPrice, spot)
	}
	return nil
}

// ATMStrike returns the domain member closest to spot. Equal distances resolve
// to the lower strike; domain must be ascending.
func ATMStrike(domain []float64, spot float64) (float64, error) {
	if len(domain) == 0 {
		return 0, ErrEmptyChain
	}

	s := decimal.NewFromFloat(spot)
	best := domain[0]
	bestDist := decimal.NewFromFloat(best).Sub(s).Abs()
	for _, strike := range domain[1:] {
		dist := decimal.NewFromFloat(strike).Sub(s).Abs()
		if dist.LessThan(bestDist) {
			best, bestDist = strike, dist
		}
	}
	return best, nil
}

// ExpectedMoveAt prices the ATM straddle from the last traded prices and derives
// the expected range around spot. A side without a row at the ATM strike
// contributes 0 and is flagged instead of failing the estimate.
func ExpectedMoveAt(c chain.OptionChain, domain []float64, spot float64) (ExpectedMove, error) {
	if err := ValidateSpot(spot); err != nil {
		return ExpectedMove{}, err
	}
	atm, err := ATMStrike(domain, spot)
	if err != nil {
		return ExpectedMove{}, err
	}

	em := ExpectedMove{ATMStrike: atm}
	if row, ok := firstAtStrike(c.Calls, atm); ok {
		em.CallPrice = row.LastPrice
	} else {
		em.CallLegMissing = true
	}
	if row, ok := firstAtStrike(c.Puts, atm); ok {
		em.PutPrice = row.LastPrice
	} else {
		em.PutLegMissing = true
	}

	em.Abs = em.CallPrice + em.PutPrice
	em.Percent = em.Abs / spot * 100
	em.UpperBound = spot + em.Abs
	em.LowerBound = spot - em.Abs
	return em, nil
}

func firstAtStrike(rows []chain.ContractRow, strike float64) (chain.ContractRow, bool) {
	for _, r := range rows {
		if r.Strike == strike {
			return r, true
		}
	}
	return chain.ContractRow{}, false
}
