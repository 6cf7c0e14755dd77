// Package storage keeps a bounded in-memory history of analysis reports.
package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eddiefleurent/chainscope/internal/models"
)

// DefaultCapacity is the number of reports kept when no capacity is given.
const DefaultCapacity = 100

// MemoryStore holds the most recent reports, newest first.
// Reports are shared, not copied; callers must not mutate them after Add.
type MemoryStore struct {
	mu       sync.RWMutex
	reports  []*models.Report
	stats    Statistics
	capacity int
}

// Statistics summarizes everything added since the store was created,
// including reports already evicted.
type Statistics struct {
	BySymbol      map[string]int `json:"by_symbol"`
	LastGenerated time.Time      `json:"last_generated,omitempty"`
	TotalReports  int            `json:"total_reports"`
	Degraded      int            `json:"degraded"`
	Stored        int            `json:"stored"`
}

// NewMemoryStore creates a store bounded to capacity reports.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		reports:  make([]*models.Report, 0, capacity),
		stats:    Statistics{BySymbol: make(map[string]int)},
	}
}

// Add validates report and stores it as the newest entry, evicting the
// oldest once the store is full.
func (s *MemoryStore) Add(report *models.Report) error {
	if report == nil {
		return ErrNilReport
	}
	if err := report.Validate(); err != nil {
		return fmt.Errorf("storing report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reports) == s.capacity {
		s.reports = s.reports[:len(s.reports)-1]
	}
	s.reports = append(s.reports, nil)
	copy(s.reports[1:], s.reports)
	s.reports[0] = report

	s.stats.TotalReports++
	s.stats.BySymbol[report.Symbol]++
	if report.Degraded() {
		s.stats.Degraded++
	}
	if report.GeneratedAt.After(s.stats.LastGenerated) {
		s.stats.LastGenerated = report.GeneratedAt
	}
	return nil
}

// Get returns the stored report with the given id.
func (s *MemoryStore) Get(id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: id %s", ErrReportNotFound, id)
}

// Latest returns the newest stored report for symbol (case-insensitive).
func (s *MemoryStore) Latest(symbol string) (*models.Report, error) {
	want := strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.Symbol == want {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: symbol %s", ErrReportNotFound, want)
}

// Recent returns up to limit reports, newest first. A limit <= 0 returns all.
func (s *MemoryStore) Recent(limit int) []*models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.reports) {
		limit = len(s.reports)
	}
	out := make([]*models.Report, limit)
	copy(out, s.reports[:limit])
	return out
}

// Statistics returns a snapshot of the running totals.
func (s *MemoryStore) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.stats
	out.Stored = len(s.reports)
	out.BySymbol = make(map[string]int, len(s.stats.BySymbol))
	for k, v := range s.stats.BySymbol {
		out.BySymbol[k] = v
	}
	return out
}

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
