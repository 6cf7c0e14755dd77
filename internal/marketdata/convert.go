package marketdata

import (
	"errors"
	"strings"

	"github.com/eddiefleurent/chainscope/internal/chain"
)

// OptionType represents the type of option contract
type OptionType string

const (
	// OptionTypePut represents a put option contract
	OptionTypePut OptionType = "put"
	// OptionTypeCall represents a call option contract
	OptionTypeCall OptionType = "call"
)

// SpotPrice returns the price the analysis should treat as current: last trade,
// then today's close, then the previous close. Zero means no usable price.
func (q *QuoteItem) SpotPrice() float64 {
	switch {
	case q == nil:
		return 0
	case q.Last > 0:
		return q.Last
	case q.Close > 0:
		return q.Close
	case q.PrevClose > 0:
		return q.PrevClose
	default:
		return 0
	}
}

// ToRawContracts splits options into call and put rows for chain.Normalize.
// Contracts with an unknown option type are skipped and counted.
func ToRawContracts(options []Option) (calls, puts []chain.RawContract, skipped int) {
	for i := range options {
		opt := &options[i]
		raw := chain.RawContract{
			Strike:       opt.Strike,
			LastPrice:    opt.Last,
			Volume:       intToFloat(opt.Volume),
			OpenInterest: intToFloat(opt.OpenInterest),
		}
		switch OptionType(strings.ToLower(opt.OptionType)) {
		case OptionTypeCall:
			calls = append(calls, raw)
		case OptionTypePut:
			puts = append(puts, raw)
		default:
			skipped++
		}
	}
	return calls, puts, skipped
}

// FilterExpiration keeps only options expiring on expiration. Providers that
// return every root of a symbol sometimes mix dates; an empty date passes.
func FilterExpiration(options []Option, expiration string) []Option {
	out := options[:0:0]
	for _, opt := range options {
		if opt.ExpirationDate == "" || opt.ExpirationDate == expiration {
			out = append(out, opt)
		}
	}
	return out
}

// ErrInvalidSymbol is returned for an empty ticker.
var ErrInvalidSymbol = errors.New("symbol is required")

// NormalizeSymbol trims and upper-cases a ticker, rejecting empty input.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", ErrInvalidSymbol
	}
	return s, nil
}

func intToFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
