package analytics

import (
	"context"
	"sync"

	"github.com/patrickwarner/adcreatives/internal/models"
)

var _ Recorder = (*MockAnalytics)(nil)

// Snapshot is one call captured by MockAnalytics.
type Snapshot struct {
	AccountID string
	DateRange string
	Records   []models.CreativeRecord
}

// MockAnalytics is a mock implementation of Analytics for testing
type MockAnalytics struct {
	mu        sync.Mutex
	snapshots []Snapshot
	Err       error
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordCreatives captures the snapshot (mock implementation)
func (m *MockAnalytics) RecordCreatives(ctx context.Context, accountID, dateRange string, records []models.CreativeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.snapshots = append(m.snapshots, Snapshot{AccountID: accountID, DateRange: dateRange, Records: records})
	return nil
}

// Snapshots returns the captured calls.
func (m *MockAnalytics) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.snapshots...)
}
