package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Provider defines the market data a chain analysis needs.
type Provider interface {
	GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error)
	GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error)
	GetOptionChainCtx(ctx context.Context, symbol, expiration string) ([]Option, error)
}

// Ensure TradierAPI implements Provider at compile time.
var _ Provider = (*TradierAPI)(nil)

// CircuitBreakerProvider wraps a Provider with circuit breaker functionality
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

var _ Provider = (*CircuitBreakerProvider)(nil)

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	provider Provider,
	fn func(Provider) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(provider) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultCircuitBreakerSettings trips after 60% failures over at least 5 requests.
var DefaultCircuitBreakerSettings = CircuitBreakerSettings{
	MaxRequests:  3,
	Interval:     60 * time.Second,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.6,
}

// NewCircuitBreakerProvider creates a CircuitBreakerProvider with DefaultCircuitBreakerSettings
func NewCircuitBreakerProvider(provider Provider, logger logrus.FieldLogger) *CircuitBreakerProvider {
	return NewCircuitBreakerProviderWithSettings(provider, DefaultCircuitBreakerSettings, logger)
}

// NewCircuitBreakerProviderWithSettings creates a CircuitBreakerProvider with custom settings
func NewCircuitBreakerProviderWithSettings(
	provider Provider,
	settings CircuitBreakerSettings,
	logger logrus.FieldLogger,
) *CircuitBreakerProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// State returns the current breaker state.
func (c *CircuitBreakerProvider) State() gobreaker.State {
	return c.breaker.State()
}

// GetQuoteCtx wraps the underlying provider call with circuit breaker
func (c *CircuitBreakerProvider) GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error) {
	return execCircuitBreaker(c.breaker, c.provider, func(p Provider) (*QuoteItem, error) {
		return p.GetQuoteCtx(ctx, symbol)
	})
}

// GetExpirationsCtx wraps the underlying provider call with circuit breaker
func (c *CircuitBreakerProvider) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	return execCircuitBreaker(c.breaker, c.provider, func(p Provider) ([]string, error) {
		return p.GetExpirationsCtx(ctx, symbol)
	})
}

// GetOptionChainCtx wraps the underlying provider call with circuit breaker
func (c *CircuitBreakerProvider) GetOptionChainCtx(ctx context.Context, symbol, expiration string) ([]Option, error) {
	return execCircuitBreaker(c.breaker, c.provider, func(p Provider) ([]Option, error) {
		return p.GetOptionChainCtx(ctx, symbol, expiration)
	})
}
