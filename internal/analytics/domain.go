// Package analytics computes options positioning signals for one expiration:
// Max Pain, the straddle-implied Expected Move, Put/Call ratios and open-interest walls.
//
// Every function is a pure transformation of a normalized chain.OptionChain. Nothing
// here performs I/O or keeps state between calls.
package analytics

import (
	"sort"

	"github.com/eddiefleurent/chainscope/internal/chain"
)

// StrikeDomain returns the distinct strikes present on either side of the chain,
// sorted ascending. The result does not depend on input row order.
func StrikeDomain(c chain.OptionChain) []float64 {
	seen := make(map[float64]struct{}, c.Len())
	strikes := make([]float64, 0, c.Len())
	add := func(rows []chain.ContractRow) {
		for _, r := range rows {
			if _, ok := seen[r.Strike]; ok {
				continue
			}
			seen[r.Strike] = struct{}{}
			strikes = append(strikes, r.Strike)
		}
	}
	add(c.Calls)
	add(c.Puts)

	sort.Float64s(strikes)
	return strikes
}
