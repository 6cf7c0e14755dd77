package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProvider succeeds for the first okCalls calls and fails afterwards.
type flakyProvider struct {
	calls   atomic.Int32
	okCalls int32
	options []Option
}

var errProviderDown = errors.New("provider down")

func (f *flakyProvider) next() error {
	if f.calls.Add(1) > f.okCalls {
		return errProviderDown
	}
	return nil
}

func (f *flakyProvider) GetQuoteCtx(_ context.Context, symbol string) (*QuoteItem, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &QuoteItem{Symbol: symbol, Last: 100}, nil
}

func (f *flakyProvider) GetExpirationsCtx(_ context.Context, _ string) ([]string, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return []string{"2025-10-17"}, nil
}

func (f *flakyProvider) GetOptionChainCtx(_ context.Context, _, _ string) ([]Option, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.options, nil
}

func fastBreakerSettings() CircuitBreakerSettings {
	return CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     10 * time.Millisecond,
		Timeout:      20 * time.Millisecond,
		MinRequests:  1,
		FailureRatio: 0.5,
	}
}

func TestCircuitBreakerProvider_PassThrough(t *testing.T) {
	inner := &flakyProvider{okCalls: 10, options: []Option{{Symbol: "X", Strike: 100}}}
	cb := NewCircuitBreakerProvider(inner, nil)
	ctx := context.Background()

	q, err := cb.GetQuoteCtx(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", q.Symbol)

	exps, err := cb.GetExpirationsCtx(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-17"}, exps)

	opts, err := cb.GetOptionChainCtx(ctx, "SPY", "2025-10-17")
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerProvider_NilResultIsNotAnError(t *testing.T) {
	inner := &flakyProvider{okCalls: 1}
	cb := NewCircuitBreakerProvider(inner, nil)

	opts, err := cb.GetOptionChainCtx(context.Background(), "SPY", "2025-10-17")
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestCircuitBreakerProvider_TripsAndRecovers(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	inner := &flakyProvider{okCalls: 0}
	cb := NewCircuitBreakerProviderWithSettings(inner, fastBreakerSettings(), logger)
	ctx := context.Background()

	_, err := cb.GetQuoteCtx(ctx, "SPY")
	require.ErrorIs(t, err, errProviderDown)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Open breaker rejects without calling through.
	before := inner.calls.Load()
	_, err = cb.GetQuoteCtx(ctx, "SPY")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, inner.calls.Load())

	require.NotEmpty(t, hook.AllEntries())
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "open", entry.Data["to"])

	// After the timeout a half-open probe succeeds and closes the breaker.
	inner.okCalls = inner.calls.Load() + 10
	time.Sleep(30 * time.Millisecond)

	_, err = cb.GetExpirationsCtx(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
