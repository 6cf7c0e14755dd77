// Package scanner fetches option chains and turns them into analysis reports.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/chain"
	"github.com/eddiefleurent/chainscope/internal/marketdata"
	"github.com/eddiefleurent/chainscope/internal/models"
)

var (
	// ErrNoExpirations is returned when a symbol has no listed option expirations.
	ErrNoExpirations = errors.New("no option data for symbol")
	// ErrUnknownExpiration is returned when the requested expiration is not listed.
	ErrUnknownExpiration = errors.New("expiration not listed")
)

// DefaultConcurrency bounds Scan when no limit is configured.
const DefaultConcurrency = 4

// Recorder receives every report Analyze produces.
type Recorder interface {
	Add(report *models.Report) error
}

// Scanner runs the analytics engine over chains fetched from a Provider.
type Scanner struct {
	provider    marketdata.Provider
	logger      logrus.FieldLogger
	recorder    Recorder
	now         func() time.Time
	source      string
	concurrency int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRecorder stores every successful report.
func WithRecorder(r Recorder) Option {
	return func(s *Scanner) { s.recorder = r }
}

// WithConcurrency bounds how many symbols Scan analyzes at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSource labels reports with the data source name.
func WithSource(name string) Option {
	return func(s *Scanner) { s.source = name }
}

// WithClock replaces the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scanner over provider.
func New(provider marketdata.Provider, logger logrus.FieldLogger, opts ...Option) *Scanner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Scanner{
		provider:    provider,
		logger:      logger,
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expirations lists a symbol's expirations in ascending order.
func (s *Scanner) Expirations(ctx context.Context, symbol string) ([]string, error) {
	sym, err := marketdata.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.expirations(ctx, sym)
}

func (s *Scanner) expirations(ctx context.Context, symbol string) ([]string, error) {
	dates, err := s.provider.GetExpirationsCtx(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("listing expirations for %s: %w", symbol, err)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExpirations, symbol)
	}
	out := append([]string(nil), dates...)
	sort.Strings(out)
	return out, nil
}

// Analyze fetches the quote and chain for one expiration and analyzes them.
// An empty expiration selects the nearest listed one.
func (s *Scanner) Analyze(ctx context.Context, symbol, expiration string) (*models.Report, error) {
	sym, err := marketdata.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	dates, err := s.expirations(ctx, sym)
	if err != nil {
		return nil, err
	}
	exp, err := pickExpiration(dates, expiration)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sym, err)
	}

	log := s.logger.WithFields(logrus.Fields{"symbol": sym, "expiration": exp})

	var (
		quote   *marketdata.QuoteItem
		options []marketdata.Option
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.provider.GetQuoteCtx(gctx, sym)
		if err != nil {
			return fmt.Errorf("fetching quote: %w", err)
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		opts, err := s.provider.GetOptionChainCtx(gctx, sym, exp)
		if err != nil {
			return fmt.Errorf("fetching option chain: %w", err)
		}
		options = opts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", sym, exp, err)
	}

	calls, puts, skipped := marketdata.ToRawContracts(marketdata.FilterExpiration(options, exp))
	c, stats := chain.Normalize(calls, puts)
	if stats.DroppedRows > 0 || skipped > 0 {
		log.WithFields(logrus.Fields{"dropped": stats.DroppedRows, "skipped": skipped}).
			Warn("discarded unusable contracts")
	}

	spot := quote.SpotPrice()
	result, err := analytics.Analyze(spot, c)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", sym, exp, err)
	}

	report := &models.Report{
		ID:               uuid.NewString(),
		Symbol:           sym,
		Expiration:       exp,
		Source:           s.source,
		GeneratedAt:      s.now().UTC(),
		SpotPrice:        spot,
		Chain:            stats,
		SkippedContracts: skipped,
		Result:           result,
	}

	if report.Degraded() {
		log.WithFields(logrus.Fields{
			"atm_strike":       result.ExpectedMove.ATMStrike,
			"call_leg_missing": result.ExpectedMove.CallLegMissing,
			"put_leg_missing":  result.ExpectedMove.PutLegMissing,
		}).Warn("expected move priced with a missing leg")
	}
	log.WithField("report_id", report.ID).Debug(report.String())

	if s.recorder != nil {
		if err := s.recorder.Add(report); err != nil {
			log.WithError(err).Warn("failed to record report")
		}
	}
	return report, nil
}

// Outcome is the result of analyzing one symbol during a Scan.
type Outcome struct {
	Report *models.Report
	Err    error
	Symbol string
}

// Scan analyzes the nearest expiration of each symbol concurrently.
// A failing symbol is recorded in its Outcome and never stops the others.
// Outcomes are returned in input order.
func (s *Scanner) Scan(ctx context.Context, symbols []string) []Outcome {
	outcomes := make([]Outcome, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			report, err := s.Analyze(gctx, sym, "")
			outcomes[i] = Outcome{Symbol: sym, Report: report, Err: err}
			if err != nil {
				s.logger.WithError(err).WithField("symbol", sym).Warn("scan failed for symbol")
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func pickExpiration(dates []string, requested string) (string, error) {
	if requested == "" {
		return dates[0], nil
	}
	if _, err := time.Parse("2006-01-02", requested); err != nil {
		return "", fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrUnknownExpiration, requested)
	}
	for _, d := range dates {
		if d == requested {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownExpiration, requested)
}
