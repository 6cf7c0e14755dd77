package storage

import "github.com/eddiefleurent/chainscope/internal/models"

// Interface defines the contract for keeping recently generated reports.
//
// Implementations must be safe for concurrent use. The scanner adds reports
// while the dashboard reads them from request goroutines.
type Interface interface {
	Add(report *models.Report) error
	Get(id string) (*models.Report, error)
	Latest(symbol string) (*models.Report, error)
	Recent(limit int) []*models.Report
	Statistics() Statistics
	Len() int
}

// NewStorage creates the in-memory report store.
// A capacity <= 0 selects DefaultCapacity.
func NewStorage(capacity int) Interface {
	return NewMemoryStore(capacity)
}

// Ensure MemoryStore implements Interface
var _ Interface = (*MemoryStore)(nil)
