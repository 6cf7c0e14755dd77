// Package chain defines the normalized option chain consumed by the analytics engine
// and the normalization pass that produces it from raw data-source rows.
package chain

import "math"

// Side identifies the call or put half of a chain.
type Side string

const (
	// SideCall is the call side of the chain
	SideCall Side = "call"
	// SidePut is the put side of the chain
	SidePut Side = "put"
)

// RawContract is a chain row as delivered by a data source.
// Any numeric field other than Strike may be absent (nil) or non-finite.
type RawContract struct {
	LastPrice    *float64 `json:"last_price,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
	OpenInterest *float64 `json:"open_interest,omitempty"`
	Strike       float64  `json:"strike"`
}

// ContractRow is one normalized option contract at one strike for one side.
type ContractRow struct {
	Strike       float64 `json:"strike"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
}

// OptionChain holds the normalized calls and puts for a single underlying and expiration.
// Rows sharing a strike are distinct contracts; nothing is deduplicated here.
type OptionChain struct {
	Calls []ContractRow `json:"calls"`
	Puts  []ContractRow `json:"puts"`
}

// Len returns the total number of rows on both sides.
func (c OptionChain) Len() int {
	return len(c.Calls) + len(c.Puts)
}

// IsEmpty reports whether the chain has no rows at all.
func (c OptionChain) IsEmpty() bool {
	return c.Len() == 0
}

// Stats describes what the normalization pass did to the raw input.
type Stats struct {
	InputRows     int `json:"input_rows"`
	DroppedRows   int `json:"dropped_rows"`   // unresolvable strike
	ZeroedFields  int `json:"zeroed_fields"`  // absent, NaN, Inf or negative values replaced by 0
	RoundedCounts int `json:"rounded_counts"` // fractional volume/OI rounded to an integer
}

// Normalize converts raw calls and puts into an OptionChain.
//
// Absent, NaN, infinite and negative prices, volumes and open interest become 0.
// Volume and open interest are rounded to the nearest whole contract.
// Rows whose strike is not a finite positive number cannot be placed on the strike
// ladder and are dropped. Input order within each side is preserved.
func Normalize(calls, puts []RawContract) (OptionChain, Stats) {
	var stats Stats
	out := OptionChain{
		Calls: normalizeSide(calls, &stats),
		Puts:  normalizeSide(puts, &stats),
	}
	return out, stats
}

func normalizeSide(raw []RawContract, stats *Stats) []ContractRow {
	rows := make([]ContractRow, 0, len(raw))
	for _, r := range raw {
		stats.InputRows++
		if !ValidStrike(r.Strike) {
			stats.DroppedRows++
			continue
		}
		rows = append(rows, ContractRow{
			Strike:       r.Strike,
			LastPrice:    cleanValue(r.LastPrice, stats),
			Volume:       cleanCount(r.Volume, stats),
			OpenInterest: cleanCount(r.OpenInterest, stats),
		})
	}
	return rows
}

// ValidStrike reports whether s can be used as a strike level.
func ValidStrike(s float64) bool {
	return !math.IsNaN(s) && !math.IsInf(s, 0) && s > 0
}

func cleanValue(v *float64, stats *Stats) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		stats.ZeroedFields++
		return 0
	}
	return *v
}

func cleanCount(v *float64, stats *Stats) int64 {
	f := cleanValue(v, stats)
	r := math.Round(f)
	if r != f {
		stats.RoundedCounts++
	}
	if r >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(r)
}

// Float returns a pointer to v. Handy for building RawContract literals.
func Float(v float64) *float64 {
	return &v
}
