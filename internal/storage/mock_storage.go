package storage

import (
	"sync"

	"github.com/eddiefleurent/chainscope/internal/models"
)

// MockStorage implements Interface for testing. It wraps a MemoryStore and
// lets tests inject Add failures and count calls.
type MockStorage struct {
	*MemoryStore
	mu           sync.Mutex
	addError     error
	addCallCount int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{MemoryStore: NewMemoryStore(DefaultCapacity)}
}

// Add records the call and fails with the injected error when one is set.
func (m *MockStorage) Add(report *models.Report) error {
	m.mu.Lock()
	m.addCallCount++
	err := m.addError
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.Add(report)
}

// Mock control methods for testing
func (m *MockStorage) SetAddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addError = err
}

func (m *MockStorage) GetAddCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCallCount
}

var _ Interface = (*MockStorage)(nil)
