package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
)

// DefaultMemoryReportCapacity bounds the number of reports kept in memory
const DefaultMemoryReportCapacity = 50

// MemoryReportStore keeps the most recent batch reports in process memory.
// It is used when object storage is disabled.
type MemoryReportStore struct {
	mu       sync.Mutex
	capacity int
	order    []string
	reports  map[string][]byte
}

// NewMemoryReportStore creates a store holding at most capacity reports
func NewMemoryReportStore(capacity int) *MemoryReportStore {
	if capacity <= 0 {
		capacity = DefaultMemoryReportCapacity
	}
	return &MemoryReportStore{
		capacity: capacity,
		reports:  make(map[string][]byte),
	}
}

// Ensure MemoryReportStore implements ReportStore
var _ appintegration.ReportStore = (*MemoryReportStore)(nil)

// Archive stores an encoded copy of the result, evicting the oldest report when full
func (s *MemoryReportStore) Archive(_ context.Context, result *appintegration.BatchResult) (string, error) {
	if result == nil || result.BatchID == "" {
		return "", errors.New("batch id is required")
	}
	body, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[result.BatchID]; !exists {
		s.order = append(s.order, result.BatchID)
	}
	s.reports[result.BatchID] = body
	for len(s.order) > s.capacity {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	return "memory://" + result.BatchID, nil
}

// Load decodes a stored report
func (s *MemoryReportStore) Load(_ context.Context, batchID string) (*appintegration.BatchResult, error) {
	s.mu.Lock()
	body, ok := s.reports[batchID]
	s.mu.Unlock()
	if !ok {
		return nil, appintegration.ErrReportNotFound
	}

	var result appintegration.BatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode batch report: %w", err)
	}
	return &result, nil
}

// Len returns the number of stored reports
func (s *MemoryReportStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
