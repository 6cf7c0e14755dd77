// Package dashboard serves analysis reports over a JSON HTTP API.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/marketdata"
	"github.com/eddiefleurent/chainscope/internal/models"
	"github.com/eddiefleurent/chainscope/internal/scanner"
	"github.com/eddiefleurent/chainscope/internal/storage"
)

const defaultReportLimit = 20

// Analyzer produces reports on demand.
type Analyzer interface {
	Analyze(ctx context.Context, symbol, expiration string) (*models.Report, error)
	Expirations(ctx context.Context, symbol string) ([]string, error)
}

var _ Analyzer = (*scanner.Scanner)(nil)

// Server exposes expirations, on-demand analysis and recent reports.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	analyzer  Analyzer
	storage   storage.Interface
	logger    logrus.FieldLogger
	now       func() time.Time
	authToken string
	port      int
}

// Config holds the HTTP server settings.
type Config struct {
	AuthToken      string
	Port           int
	RequestTimeout time.Duration
}

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// NewServer wires routes and middleware. Reports produced by analyzer are
// expected to reach store through the analyzer's own recorder.
func NewServer(cfg Config, analyzer Analyzer, store storage.Interface, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		router:    chi.NewRouter(),
		analyzer:  analyzer,
		storage:   store,
		logger:    logger,
		now:       time.Now,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes(cfg.RequestTimeout)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(timeout time.Duration) {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/expirations/{symbol}", s.handleExpirations)
		r.Get("/analysis/{symbol}", s.handleAnalysis)
		r.Get("/reports", s.handleReports)
		r.Get("/reports/{id}", s.handleReport)
		r.Get("/stats", s.handleStats)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			s.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	})
}

// Start listens on the configured port until Shutdown is called. Start
// after Shutdown returns nil immediately.
func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Unix(),
		"reports":   s.storage.Len(),
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleExpirations(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	dates, err := s.analyzer.Expirations(r.Context(), symbol)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":      symbol,
		"expirations": dates,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	expiration := r.URL.Query().Get("expiration")

	report, err := s.analyzer.Analyze(r.Context(), symbol, expiration)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		report, err := s.storage.Latest(symbol)
		if err != nil {
			s.writeError(w, errorStatus(err), err)
			return
		}
		s.writeJSON(w, http.StatusOK, []*models.Report{report})
		return
	}

	s.writeJSON(w, http.StatusOK, s.storage.Recent(limit))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.storage.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.storage.Statistics())
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var apiErr *marketdata.APIError
	switch {
	case errors.Is(err, analytics.ErrEmptyChain), errors.Is(err, analytics.ErrInvalidSpotPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scanner.ErrNoExpirations),
		errors.Is(err, scanner.ErrUnknownExpiration),
		errors.Is(err, storage.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, marketdata.ErrInvalidSymbol):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Warn("upstream failure")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Status: status})
}
