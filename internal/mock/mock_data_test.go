package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/chain"
	"github.com/eddiefleurent/chainscope/internal/marketdata"
)

func fixedClock() time.Time {
	return time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC) // Wednesday
}

func TestProvider_GetOptionChain_InvalidExpiration(t *testing.T) {
	provider := NewProvider()

	_, err := provider.GetOptionChainCtx(context.Background(), "SPY", "invalid-date")
	if err == nil {
		t.Error("Expected error for invalid expiration format, got nil")
	}

	// Past expiration should not error
	pastDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	options, err := provider.GetOptionChainCtx(context.Background(), "SPY", pastDate)
	if err != nil {
		t.Errorf("Unexpected error for past expiration: %v", err)
	}
	if len(options) == 0 {
		t.Error("Expected some options even for past expiration")
	}
}

func TestProvider_GetExpirations_NextFridays(t *testing.T) {
	provider := NewProvider().WithClock(fixedClock)

	exps, err := provider.GetExpirationsCtx(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-17", "2025-10-24", "2025-10-31", "2025-11-07"}, exps)
}

func TestNextFridays_OnFriday(t *testing.T) {
	friday := time.Date(2025, 10, 17, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-10-24"}, nextFridays(friday, 1))
}

func TestProvider_ChainShape(t *testing.T) {
	provider := NewProvider().WithClock(fixedClock)
	provider.SetPrice("SPY", 452.3)

	options, err := provider.GetOptionChainCtx(context.Background(), "SPY", "2025-10-17")
	require.NoError(t, err)

	// 400..500 step 5, one put and one call each
	require.Len(t, options, 42)

	strikes := map[float64]int{}
	for _, opt := range options {
		strikes[opt.Strike]++
		assert.Equal(t, "2025-10-17", opt.ExpirationDate)
		require.NotNil(t, opt.OpenInterest)
		assert.GreaterOrEqual(t, *opt.OpenInterest, int64(0))
		if opt.Last != nil {
			assert.Greater(t, *opt.Last, 0.0)
		}
	}
	assert.Len(t, strikes, 21)
	assert.Equal(t, 2, strikes[450])
}

func TestProvider_ChainFeedsAnalysis(t *testing.T) {
	provider := NewProvider().WithClock(fixedClock)
	provider.SetPrice("QQQ", 480)
	ctx := context.Background()

	quote, err := provider.GetQuoteCtx(ctx, "QQQ")
	require.NoError(t, err)
	assert.InDelta(t, 480, quote.SpotPrice(), 1.0)
	assert.Equal(t, 480.0, quote.Close)

	options, err := provider.GetOptionChainCtx(ctx, "QQQ", "2025-10-24")
	require.NoError(t, err)

	calls, puts, skipped := marketdata.ToRawContracts(options)
	assert.Zero(t, skipped)
	c, _ := chain.Normalize(calls, puts)

	res, err := analytics.Analyze(quote.SpotPrice(), c)
	require.NoError(t, err)
	assert.False(t, res.ExpectedMove.Degraded(), "at-the-money legs always trade")
	assert.Len(t, res.TopCallsByOI, analytics.WallCount)
	assert.Len(t, res.TopPutsByOI, analytics.WallCount)
	assert.Contains(t, res.StrikeDomain, res.MaxPainStrike)
}

func TestProvider_Canceled(t *testing.T) {
	provider := NewProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.GetQuoteCtx(ctx, "SPY")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = provider.GetExpirationsCtx(ctx, "SPY")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = provider.GetOptionChainCtx(ctx, "SPY", "2025-10-17")
	assert.ErrorIs(t, err, context.Canceled)
}
