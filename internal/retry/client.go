// Package retry adds bounded retries with backoff to market data calls.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/chainscope/internal/marketdata"
)

// Config controls retry attempts and backoff.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultConfig is used when NewClient is called without a Config.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Client retries transient Provider failures.
type Client struct {
	provider marketdata.Provider
	logger   logrus.FieldLogger
	config   Config
}

var _ marketdata.Provider = (*Client)(nil)

// NewClient wraps provider. Invalid config values fall back to DefaultConfig.
func NewClient(provider marketdata.Provider, logger logrus.FieldLogger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		provider: provider,
		logger:   logger,
		config:   cfg,
	}
}

// GetQuoteCtx fetches a quote, retrying transient failures.
func (c *Client) GetQuoteCtx(ctx context.Context, symbol string) (*marketdata.QuoteItem, error) {
	return do(ctx, c, "quote", logrus.Fields{"symbol": symbol}, func(ctx context.Context) (*marketdata.QuoteItem, error) {
		return c.provider.GetQuoteCtx(ctx, symbol)
	})
}

// GetExpirationsCtx lists expirations, retrying transient failures.
func (c *Client) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	return do(ctx, c, "expirations", logrus.Fields{"symbol": symbol}, func(ctx context.Context) ([]string, error) {
		return c.provider.GetExpirationsCtx(ctx, symbol)
	})
}

// GetOptionChainCtx fetches a chain, retrying transient failures.
func (c *Client) GetOptionChainCtx(ctx context.Context, symbol, expiration string) ([]marketdata.Option, error) {
	fields := logrus.Fields{"symbol": symbol, "expiration": expiration}
	return do(ctx, c, "option chain", fields, func(ctx context.Context) ([]marketdata.Option, error) {
		return c.provider.GetOptionChainCtx(ctx, symbol, expiration)
	})
}

// do runs fn until it succeeds, fails permanently, or runs out of attempts.
// The whole sequence, backoff included, is bounded by Config.Timeout.
func do[T any](
	ctx context.Context,
	c *Client,
	op string,
	fields logrus.Fields,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff
	log := c.logger.WithFields(fields)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s canceled: %w", op, ctx.Err())
		}
		if opCtx.Err() != nil {
			return zero, fmt.Errorf("%s timed out after %v: %w", op, c.config.Timeout, opCtx.Err())
		}

		res, err := fn(opCtx)
		if err == nil {
			if attempt > 0 {
				log.WithField("attempt", attempt+1).Info(op + " succeeded after retry")
			}
			return res, nil
		}

		lastErr = err
		log.WithError(err).WithField("attempt", attempt+1).Debug(op + " attempt failed")

		if !isTransientError(err) || attempt >= c.config.MaxRetries {
			break
		}

		log.WithField("backoff", backoff).Warn("transient error, retrying " + op)
		select {
		case <-time.After(backoff):
			backoff = c.calculateNextBackoff(backoff)
		case <-opCtx.Done():
			if ctx.Err() != nil {
				return zero, fmt.Errorf("%s canceled during backoff: %w", op, ctx.Err())
			}
			return zero, fmt.Errorf("%s timed out during backoff: %w", op, opCtx.Err())
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, c.config.MaxRetries+1, lastErr)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.logger.WithError(err).Warn("failed to generate jitter")
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}

	return backoff
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *marketdata.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"network",
		"dns",
		"tcp",
		"eof",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
