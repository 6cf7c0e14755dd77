// Package marketdata retrieves quotes, expirations and option chains.
// It includes the Tradier REST client and a circuit-breaker wrapper for any Provider.
package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt (429 or 5xx).
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// TradierAPI is a read-only client for the Tradier market data endpoints.
type TradierAPI struct {
	client  *http.Client
	logger  logrus.FieldLogger
	apiKey  string
	baseURL string
	sandbox bool
}

// NewTradierAPI creates a client against the sandbox or production endpoint.
func NewTradierAPI(apiKey string, sandbox bool) *TradierAPI {
	return NewTradierAPIWithBaseURL(apiKey, sandbox, "")
}

// NewTradierAPIWithBaseURL creates a client with an optional custom base URL.
// An empty baseURL selects the sandbox or production endpoint.
func NewTradierAPIWithBaseURL(apiKey string, sandbox bool, baseURL string) *TradierAPI {
	if baseURL == "" {
		if sandbox {
			baseURL = "https://sandbox.tradier.com/v1"
		} else {
			baseURL = "https://api.tradier.com/v1"
		}
	}
	// Normalize once
	baseURL = strings.TrimRight(baseURL, "/")

	return &TradierAPI{
		apiKey:  apiKey,
		baseURL: baseURL,
		sandbox: sandbox,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logrus.StandardLogger(),
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (t *TradierAPI) WithHTTPClient(c *http.Client) *TradierAPI {
	if c != nil {
		t.client = c
	}
	return t
}

// WithTimeout sets the HTTP client timeout duration.
func (t *TradierAPI) WithTimeout(timeout time.Duration) *TradierAPI {
	if timeout > 0 && t.client != nil {
		t.client.Timeout = timeout
	}
	return t
}

// WithLogger sets the logger used for rate-limit and response diagnostics.
func (t *TradierAPI) WithLogger(logger logrus.FieldLogger) *TradierAPI {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// ============ API Response Structures ============

// Handle single-object vs array responses from Tradier
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

// OptionChainResponse represents the API response for option chain requests.
type OptionChainResponse struct {
	Options struct {
		Option singleOrArray[Option] `json:"option"`
	} `json:"options"`
}

// Option represents an option contract from the Tradier API.
// Last, Volume and OpenInterest are pointers because Tradier sends null for
// contracts that have not traded.
type Option struct {
	Last           *float64 `json:"last"`
	Volume         *int64   `json:"volume"`
	OpenInterest   *int64   `json:"open_interest"`
	Symbol         string   `json:"symbol"`
	Description    string   `json:"description"`
	OptionType     string   `json:"option_type"`
	ExpirationDate string   `json:"expiration_date"`
	Underlying     string   `json:"underlying"`
	Bid            float64  `json:"bid"`
	Ask            float64  `json:"ask"`
	Strike         float64  `json:"strike"`
}

// QuotesResponse represents the quotes response from the Tradier API.
type QuotesResponse struct {
	Quotes struct {
		Quote singleOrArray[QuoteItem] `json:"quote"`
	} `json:"quotes"`
}

// QuoteItem represents a single quote item from the Tradier API.
type QuoteItem struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	TradeDate   int64   `json:"trade_date"`
	Volume      int64   `json:"volume"`
	Last        float64 `json:"last"`
	Close       float64 `json:"close"`
	PrevClose   float64 `json:"prevclose"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Change      float64 `json:"change"`
}

// ExpirationsResponse represents the expirations response from the Tradier API.
type ExpirationsResponse struct {
	Expirations struct {
		Date singleOrArray[string] `json:"date"`
	} `json:"expirations"`
}

// ============ API Methods ============

// GetQuote retrieves the current market quote for a symbol.
func (t *TradierAPI) GetQuote(symbol string) (*QuoteItem, error) {
	return t.GetQuoteCtx(context.Background(), symbol)
}

// GetQuoteCtx retrieves the current market quote for a symbol with context support.
func (t *TradierAPI) GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("greeks", "false")
	endpoint := t.baseURL + "/markets/quotes?" + params.Encode()

	var response QuotesResponse
	if err := t.makeRequestCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	quotes := response.Quotes.Quote
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quote found for symbol: %s", symbol)
	}

	first := quotes[0]
	return &first, nil
}

// GetExpirations retrieves available expiration dates for options on a symbol.
func (t *TradierAPI) GetExpirations(symbol string) ([]string, error) {
	return t.GetExpirationsCtx(context.Background(), symbol)
}

// GetExpirationsCtx retrieves available expiration dates for options on a symbol with context support.
func (t *TradierAPI) GetExpirationsCtx(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("includeAllRoots", "true")
	params.Set("strikes", "false")
	endpoint := t.baseURL + "/markets/options/expirations?" + params.Encode()

	var response ExpirationsResponse
	if err := t.makeRequestCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return []string(response.Expirations.Date), nil
}

// GetOptionChain retrieves the option chain for a symbol and expiration date.
func (t *TradierAPI) GetOptionChain(symbol, expiration string) ([]Option, error) {
	return t.GetOptionChainCtx(context.Background(), symbol, expiration)
}

// GetOptionChainCtx retrieves the option chain for a symbol and expiration date with context.
func (t *TradierAPI) GetOptionChainCtx(ctx context.Context, symbol, expiration string) ([]Option, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("greeks", "false")
	endpoint := t.baseURL + "/markets/options/chains?" + params.Encode()

	var response OptionChainResponse
	if err := t.makeRequestCtx(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return []Option(response.Options.Option), nil
}

// makeRequestCtx performs a GET with context support for timeout/cancellation
func (t *TradierAPI) makeRequestCtx(ctx context.Context, endpoint string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "chainscope/1.0 (+tradier)")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.WithError(err).Warn("failed to close response body")
		}
	}()

	// Check rate limit headers
	remaining := resp.Header.Get("X-Ratelimit-Available")
	if remaining == "" {
		remaining = resp.Header.Get("X-RateLimit-Remaining")
	}
	if remaining != "" && t.sandbox {
		t.logger.WithField("remaining", remaining).Debug("tradier rate limit")
	}

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> failed to read error body", endpoint)}
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> %s (retry-after: %s)", endpoint, string(body), ra)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("GET %s -> %s", endpoint, string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}
