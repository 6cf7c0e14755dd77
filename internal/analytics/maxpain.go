package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/chainscope/internal/chain"
)

// Payout returns the total cash option writers would owe if every open contract
// settled at price: sum of max(0, price-strike)*OI over calls plus
// max(0, strike-price)*OI over puts.
//
// Sums are exact decimals so two strikes with the same payout compare equal.
func Payout(c chain.OptionChain, price float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	total := decimal.Zero
	for _, r := range c.Calls {
		if intrinsic := p.Sub(decimal.NewFromFloat(r.Strike)); intrinsic.IsPositive() {
			total = total.Add(intrinsic.Mul(decimal.NewFromInt(r.OpenInterest)))
		}
	}
	for _, r := range c.Puts {
		if intrinsic := decimal.NewFromFloat(r.Strike).Sub(p); intrinsic.IsPositive() {
			total = total.Add(intrinsic.Mul(decimal.NewFromInt(r.OpenInterest)))
		}
	}
	return total
}

// MaxPain returns the strike in domain where Payout is smallest.
// When several strikes share the minimum the lowest one wins; domain must be
// ascending, as returned by StrikeDomain.
func MaxPain(c chain.OptionChain, domain []float64) (float64, error) {
	if len(domain) == 0 {
		return 0, ErrEmptyChain
	}

	best := domain[0]
	bestCash := Payout(c, best)
	for _, strike := range domain[1:] {
		cash := Payout(c, strike)
		if cash.LessThan(bestCash) {
			best, bestCash = strike, cash
		}
	}
	return best, nil
}
