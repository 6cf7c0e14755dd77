package analytics

import (
	"sort"

	"github.com/eddiefleurent/chainscope/internal/chain"
)

// WallCount is the number of open-interest walls reported per side.
const WallCount = 5

// TopByOpenInterest returns up to n rows ordered by open interest, highest first.
// Rows with equal open interest keep their input order. Rows are copied as-is, so
// two contracts at the same strike stay separate entries.
func TopByOpenInterest(rows []chain.ContractRow, n int) []chain.ContractRow {
	if n <= 0 || len(rows) == 0 {
		return []chain.ContractRow{}
	}

	sorted := make([]chain.ContractRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenInterest > sorted[j].OpenInterest
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
