package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/chainscope/internal/analytics"
)

func sampleReport() *Report {
	return &Report{
		ID:          "3f1c2a9e-0000-4000-8000-000000000001",
		Symbol:      "SPY",
		Expiration:  "2025-10-17",
		Source:      "mock",
		SpotPrice:   452.3,
		GeneratedAt: time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC),
		Result: &analytics.Result{
			MaxPainStrike: 450,
			ExpectedMove:  analytics.ExpectedMove{ATMStrike: 450, Percent: 1.25},
			Ratios:        analytics.Ratios{Volume: 0.8, OpenInterest: 1.3},
		},
	}
}

func TestReport_Degraded(t *testing.T) {
	var nilReport *Report
	assert.False(t, nilReport.Degraded())

	r := sampleReport()
	assert.False(t, r.Degraded())

	r.Result.ExpectedMove.PutLegMissing = true
	assert.True(t, r.Degraded())
}

func TestReport_DaysToExpiration(t *testing.T) {
	r := sampleReport()
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"two days out", time.Date(2025, 10, 15, 23, 59, 0, 0, time.UTC), 2},
		{"expiration day", time.Date(2025, 10, 17, 9, 30, 0, 0, time.UTC), 0},
		{"after expiration clamps", time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.DaysToExpiration(tt.now))
		})
	}

	r.Expiration = "bogus"
	assert.Equal(t, 0, r.DaysToExpiration(time.Now()))
}

func TestReport_Validate(t *testing.T) {
	require.NoError(t, sampleReport().Validate())

	var nilReport *Report
	assert.Error(t, nilReport.Validate())

	bad := &Report{Expiration: "10/17/2025"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
	assert.Contains(t, err.Error(), "symbol is required")
	assert.Contains(t, err.Error(), "not YYYY-MM-DD")
	assert.Contains(t, err.Error(), "result is required")
}

func TestReport_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"id", "symbol", "expiration", "spot_price", "generated_at", "chain", "result"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "skipped_contracts", "omitted when zero")

	result := decoded["result"].(map[string]interface{})
	assert.Equal(t, 450.0, result["max_pain_strike"])
}

func TestReport_String(t *testing.T) {
	assert.Equal(t, "SPY 2025-10-17 spot=452.30 maxpain=450.0 em=1.25% pcr_vol=0.80 pcr_oi=1.30", sampleReport().String())
	assert.Equal(t, "<empty report>", (&Report{}).String())
}
