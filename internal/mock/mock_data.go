// Package mock provides a synthetic market data Provider for offline runs.
package mock

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/eddiefleurent/chainscope/internal/marketdata"
)

const (
	strikeInterval = 5.0
	strikeRange    = 50.0
	expirationDays = 4
)

// Provider serves quotes and option chains around a drifting spot price.
// Each symbol starts from its own price and drifts on every quote.
type Provider struct {
	mu     sync.Mutex
	prices map[string]float64
	midIV  float64 // Actual IV level for pricing
	now    func() time.Time
}

var _ marketdata.Provider = (*Provider)(nil)

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) int64 {
	max := big.NewInt(n)
	r, err := rand.Int(rand.Reader, max)
	if err != nil {
		return n / 2
	}
	return r.Int64()
}

// NewProvider returns a Provider with a random implied volatility level.
func NewProvider() *Provider {
	return &Provider{
		prices: make(map[string]float64),
		midIV:  12.0 + secureFloat64()*18, // MidIV between 12-30%
		now:    time.Now,
	}
}

// WithClock replaces the clock used to list expirations.
func (m *Provider) WithClock(now func() time.Time) *Provider {
	if now != nil {
		m.now = now
	}
	return m
}

// SetPrice pins the starting spot price for symbol.
func (m *Provider) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// price returns the current price for symbol, seeding it on first use.
// Callers must hold m.mu.
func (m *Provider) price(symbol string) float64 {
	p, ok := m.prices[symbol]
	if !ok {
		p = 100.0 + secureFloat64()*400 // somewhere between 100-500
		m.prices[symbol] = p
	}
	return p
}

// GetQuoteCtx returns a quote after a small random price move.
func (m *Provider) GetQuoteCtx(ctx context.Context, symbol string) (*marketdata.QuoteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.price(symbol)
	prev := p
	p = math.Max(strikeInterval, p+(secureFloat64()-0.5)*2)
	m.prices[symbol] = p

	spread := 0.02 // 2 cent spread
	return &marketdata.QuoteItem{
		Symbol:    symbol,
		Type:      "etf",
		Last:      p,
		Close:     prev,
		PrevClose: prev,
		Bid:       p - spread/2,
		Ask:       p + spread/2,
		Change:    p - prev,
		Volume:    secureInt63n(100000000),
	}, nil
}

// GetExpirationsCtx lists the next few Fridays, nearest first.
func (m *Provider) GetExpirationsCtx(ctx context.Context, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nextFridays(m.now(), expirationDays), nil
}

// GetOptionChainCtx generates puts and calls every 5 points within 50 of spot.
// Open interest peaks near the money with random noise so walls vary between runs.
func (m *Provider) GetOptionChainCtx(ctx context.Context, symbol, expiration string) ([]marketdata.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expDate, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration format: %w", err)
	}

	m.mu.Lock()
	spot := m.price(symbol)
	m.mu.Unlock()

	dte := expDate.Sub(m.now()).Hours() / 24
	if dte < 1 {
		dte = 1
	}
	timeValue := dte / 365.0
	vol := m.midIV / 100.0
	sigma := spot * vol * math.Sqrt(timeValue)

	var options []marketdata.Option

	startStrike := math.Floor(spot/strikeInterval)*strikeInterval - strikeRange
	endStrike := startStrike + 2*strikeRange

	for strike := startStrike; strike <= endStrike; strike += strikeInterval {
		if strike <= 0 {
			continue
		}
		distance := math.Abs(strike - spot)
		decay := math.Exp(-distance * 0.02) // Exponential decay

		// extrinsic value shrinks away from the money, intrinsic is added on the itm side
		extrinsic := 0.4 * sigma * decay
		callPrice := math.Max(0.01, math.Max(0, spot-strike)+extrinsic)
		putPrice := math.Max(0.01, math.Max(0, strike-spot)+extrinsic)

		call := m.option(symbol, expDate, strike, marketdata.OptionTypeCall, callPrice, decay)
		put := m.option(symbol, expDate, strike, marketdata.OptionTypePut, putPrice, decay)
		options = append(options, put, call)
	}

	return options, nil
}

func (m *Provider) option(
	symbol string,
	expDate time.Time,
	strike float64,
	kind marketdata.OptionType,
	price, decay float64,
) marketdata.Option {
	tag, name := "C", "Call"
	if kind == marketdata.OptionTypePut {
		tag, name = "P", "Put"
	}

	opt := marketdata.Option{
		Symbol:         fmt.Sprintf("%s%s%s%08d", symbol, expDate.Format("060102"), tag, int(strike*1000)),
		Description:    fmt.Sprintf("%s %s $%.2f %s", symbol, expDate.Format("Jan 02 2006"), strike, name),
		Strike:         strike,
		OptionType:     string(kind),
		ExpirationDate: expDate.Format("2006-01-02"),
		Underlying:     symbol,
		Bid:            math.Max(0, price-0.05),
		Ask:            price + 0.05,
	}

	oi := int64(float64(1000+secureInt63n(49000))*decay) + secureInt63n(500)
	opt.OpenInterest = &oi

	// far wings sometimes have not traded today
	if decay > 0.45 || secureFloat64() > 0.3 {
		last := math.Round(price*100) / 100
		vol := int64(float64(secureInt63n(10000)) * decay)
		opt.Last = &last
		opt.Volume = &vol
	}
	return opt
}

// nextFridays returns n consecutive Fridays starting with the first Friday
// strictly after now.
func nextFridays(now time.Time, n int) []string {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	d = d.AddDate(0, 0, offset)

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.AddDate(0, 0, 7*i).Format("2006-01-02"))
	}
	return out
}
