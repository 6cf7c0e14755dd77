package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/marketdata"
	"github.com/eddiefleurent/chainscope/internal/models"
	"github.com/eddiefleurent/chainscope/internal/scanner"
	"github.com/eddiefleurent/chainscope/internal/storage"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, symbol, expiration string) (*models.Report, error) {
	args := m.Called(ctx, symbol, expiration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockAnalyzer) Expirations(ctx context.Context, symbol string) ([]string, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func sampleReport(id, symbol string) *models.Report {
	return &models.Report{
		ID:          id,
		Symbol:      symbol,
		Expiration:  "2025-10-17",
		SpotPrice:   101,
		GeneratedAt: time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC),
		Result: &analytics.Result{
			StrikeDomain:  []float64{95, 100, 105},
			MaxPainStrike: 100,
			ExpectedMove:  analytics.ExpectedMove{ATMStrike: 100, Abs: 5},
		},
	}
}

func newTestServer(t *testing.T, token string) (*Server, *MockAnalyzer, *storage.MemoryStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	a := new(MockAnalyzer)
	store := storage.NewMemoryStore(10)
	s := NewServer(Config{Port: 0, AuthToken: token}, a, store, logger)
	return s, a, store
}

func do(t *testing.T, s *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, "secret")
	rec := do(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code, "health skips auth")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 0.0, body["reports"])
}

func TestAuthMiddleware(t *testing.T) {
	s, a, _ := newTestServer(t, "secret")
	a.On("Expirations", mock.Anything, "SPY").Return([]string{"2025-10-17"}, nil)

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   int
	}{
		{"missing token", "/api/expirations/SPY", nil, http.StatusUnauthorized},
		{"wrong token", "/api/expirations/SPY", map[string]string{"X-Auth-Token": "nope"}, http.StatusUnauthorized},
		{"header token", "/api/expirations/SPY", map[string]string{"X-Auth-Token": "secret"}, http.StatusOK},
		{"query token", "/api/expirations/SPY?token=secret", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, tt.header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestExpirations(t *testing.T) {
	s, a, _ := newTestServer(t, "")
	a.On("Expirations", mock.Anything, "SPY").Return([]string{"2025-10-17", "2025-10-24"}, nil)

	rec := do(t, s, http.MethodGet, "/api/expirations/SPY", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbol      string   `json:"symbol"`
		Expirations []string `json:"expirations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SPY", body.Symbol)
	assert.Equal(t, []string{"2025-10-17", "2025-10-24"}, body.Expirations)
}

func TestAnalysis_Success(t *testing.T) {
	s, a, _ := newTestServer(t, "")
	a.On("Analyze", mock.Anything, "SPY", "2025-10-17").Return(sampleReport("r1", "SPY"), nil)

	rec := do(t, s, http.MethodGet, "/api/analysis/SPY?expiration=2025-10-17", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "r1", report.ID)
	require.NotNil(t, report.Result)
	assert.Equal(t, 100.0, report.Result.MaxPainStrike)
	a.AssertExpectations(t)
}

func TestAnalysis_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty chain", fmt.Errorf("SPY 2025-10-17: %w", analytics.ErrEmptyChain), http.StatusUnprocessableEntity},
		{"invalid spot", fmt.Errorf("x: %w: 0", analytics.ErrInvalidSpotPrice), http.StatusUnprocessableEntity},
		{"no expirations", fmt.Errorf("%w: ZZZZ", scanner.ErrNoExpirations), http.StatusNotFound},
		{"unknown expiration", fmt.Errorf("%w: 2030-01-01", scanner.ErrUnknownExpiration), http.StatusNotFound},
		{"upstream api error", fmt.Errorf("fetching quote: %w", &marketdata.APIError{Status: 500}), http.StatusBadGateway},
		{"bad symbol", marketdata.ErrInvalidSymbol, http.StatusBadRequest},
		{"deadline", fmt.Errorf("quote timed out: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", fmt.Errorf("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, a, _ := newTestServer(t, "")
			a.On("Analyze", mock.Anything, "SPY", "").Return(nil, tt.err)

			rec := do(t, s, http.MethodGet, "/api/analysis/SPY", nil)
			assert.Equal(t, tt.want, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestReports(t *testing.T) {
	s, _, store := newTestServer(t, "")
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Add(sampleReport(fmt.Sprintf("r%d", i), "SPY")))
	}
	require.NoError(t, store.Add(sampleReport("q1", "QQQ")))

	rec := do(t, s, http.MethodGet, "/api/reports?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "q1", reports[0].ID)
	assert.Equal(t, "r2", reports[1].ID)

	rec = do(t, s, http.MethodGet, "/api/reports?symbol=spy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reports = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "r2", reports[0].ID)

	rec = do(t, s, http.MethodGet, "/api/reports?symbol=IWM", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/reports?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportByID(t *testing.T) {
	s, _, store := newTestServer(t, "")
	require.NoError(t, store.Add(sampleReport("abc", "SPY")))

	rec := do(t, s, http.MethodGet, "/api/reports/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	s, _, store := newTestServer(t, "")
	degraded := sampleReport("d", "QQQ")
	degraded.Result.ExpectedMove.PutLegMissing = true
	require.NoError(t, store.Add(degraded))

	rec := do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalReports)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.BySymbol["QQQ"])
}

func TestShutdownWithoutStart(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestStartAfterShutdown(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Start(), "a shut down server does not listen")
}
