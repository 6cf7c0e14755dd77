// Package models holds the report types shared by the scanner, storage and presentation layers.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/chain"
)

const expirationLayout = "2006-01-02"

// Report is one completed analysis of a symbol's chain for a single expiration.
type Report struct {
	Result      *analytics.Result `json:"result"`
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Expiration  string            `json:"expiration"`
	Source      string            `json:"source"`
	GeneratedAt time.Time         `json:"generated_at"`
	Chain       chain.Stats       `json:"chain"`
	SpotPrice   float64           `json:"spot_price"`
	// SkippedContracts counts contracts with an unknown option type
	SkippedContracts int `json:"skipped_contracts,omitempty"`
}

// Degraded reports whether the expected move was priced with a missing leg.
func (r *Report) Degraded() bool {
	return r != nil && r.Result != nil && r.Result.ExpectedMove.Degraded()
}

// DaysToExpiration returns calendar days from now until the expiration date,
// clamped at 0. An unparsable expiration returns 0.
func (r *Report) DaysToExpiration(now time.Time) int {
	exp, err := time.Parse(expirationLayout, r.Expiration)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(exp.Sub(today).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Validate checks the identifying fields a stored report must carry.
func (r *Report) Validate() error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	var problems []string
	if r.ID == "" {
		problems = append(problems, "id is required")
	}
	if r.Symbol == "" {
		problems = append(problems, "symbol is required")
	}
	if _, err := time.Parse(expirationLayout, r.Expiration); err != nil {
		problems = append(problems, fmt.Sprintf("expiration %q is not YYYY-MM-DD", r.Expiration))
	}
	if r.Result == nil {
		problems = append(problems, "result is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid report: %s", strings.Join(problems, "; "))
	}
	return nil
}

// String returns a one-line summary for logs.
func (r *Report) String() string {
	if r == nil || r.Result == nil {
		return "<empty report>"
	}
	return fmt.Sprintf("%s %s spot=%.2f maxpain=%.1f em=%.2f%% pcr_vol=%.2f pcr_oi=%.2f",
		r.Symbol, r.Expiration, r.SpotPrice, r.Result.MaxPainStrike,
		r.Result.ExpectedMove.Percent, r.Result.Ratios.Volume, r.Result.Ratios.OpenInterest)
}
