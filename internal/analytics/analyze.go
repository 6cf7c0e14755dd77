package analytics

import "github.com/eddiefleurent/chainscope/internal/chain"

// Result is everything derived from one expiration's chain.
type Result struct {
	StrikeDomain  []float64           `json:"strike_domain"`
	TopCallsByOI  []chain.ContractRow `json:"top_calls_by_oi"`
	TopPutsByOI   []chain.ContractRow `json:"top_puts_by_oi"`
	ExpectedMove  ExpectedMove        `json:"expected_move"`
	Ratios        Ratios              `json:"ratios"`
	MaxPainStrike float64             `json:"max_pain_strike"`
}

// Analyze runs every analysis over c for the given spot price.
//
// The spot price is checked first, then the strike domain. Either failure aborts the
// whole analysis and no partial Result is returned. A missing straddle leg is not an
// error; check Result.ExpectedMove.Degraded.
func Analyze(spot float64, c chain.OptionChain) (*Result, error) {
	if err := ValidateSpot(spot); err != nil {
		return nil, err
	}

	domain := StrikeDomain(c)
	if len(domain) == 0 {
		return nil, ErrEmptyChain
	}

	maxPain, err := MaxPain(c, domain)
	if err != nil {
		return nil, err
	}
	em, err := ExpectedMoveAt(c, domain, spot)
	if err != nil {
		return nil, err
	}

	return &Result{
		StrikeDomain:  domain,
		MaxPainStrike: maxPain,
		ExpectedMove:  em,
		Ratios:        PutCallRatios(c),
		TopCallsByOI:  TopByOpenInterest(c.Calls, WallCount),
		TopPutsByOI:   TopByOpenInterest(c.Puts, WallCount),
	}, nil
}
