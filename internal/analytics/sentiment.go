package analytics

import "github.com/eddiefleurent/chainscope/internal/chain"

// Sentiment is the directional read of a put/call ratio.
type Sentiment string

const (
	// SentimentBearish means puts dominate (ratio >= 1)
	SentimentBearish Sentiment = "bearish"
	// SentimentBullish means calls dominate (ratio < 1)
	SentimentBullish Sentiment = "bullish"
	// SentimentUndetermined means the call side was empty and the ratio saturated to 0
	SentimentUndetermined Sentiment = "undetermined"
)

// Ratios holds put/call ratios on the volume and open-interest bases.
//
// When the call-side total is 0 the ratio is reported as 0 rather than infinity.
// That keeps every field finite for consumers; it is a conservative approximation,
// not a statistically meaningful value.
type Ratios struct {
	Volume           float64 `json:"volume"`
	OpenInterest     float64 `json:"open_interest"`
	CallVolume       int64   `json:"call_volume"`
	PutVolume        int64   `json:"put_volume"`
	CallOpenInterest int64   `json:"call_open_interest"`
	PutOpenInterest  int64   `json:"put_open_interest"`
}

// PutCallRatios sums volume and open interest over every row on each side.
func PutCallRatios(c chain.OptionChain) Ratios {
	var r Ratios
	for _, row := range c.Calls {
		r.CallVolume += row.Volume
		r.CallOpenInterest += row.OpenInterest
	}
	for _, row := range c.Puts {
		r.PutVolume += row.Volume
		r.PutOpenInterest += row.OpenInterest
	}
	r.Volume = saturatingRatio(r.PutVolume, r.CallVolume)
	r.OpenInterest = saturatingRatio(r.PutOpenInterest, r.CallOpenInterest)
	return r
}

// VolumeBias labels the volume ratio.
func (r Ratios) VolumeBias() Sentiment {
	return bias(r.Volume, r.CallVolume)
}

// OpenInterestBias labels the open-interest ratio.
func (r Ratios) OpenInterestBias() Sentiment {
	return bias(r.OpenInterest, r.CallOpenInterest)
}

func bias(ratio float64, callTotal int64) Sentiment {
	switch {
	case callTotal == 0:
		return SentimentUndetermined
	case ratio >= 1:
		return SentimentBearish
	default:
		return SentimentBullish
	}
}

func saturatingRatio(puts, calls int64) float64 {
	if calls <= 0 {
		return 0
	}
	return float64(puts) / float64(calls)
}
