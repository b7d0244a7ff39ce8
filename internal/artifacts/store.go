package artifacts

import (
	"sync"

	"github.com/garimto81/ggm-timeline/internal/domain"
)

// RowStore holds the most recent normalized feed rows so artifact refresh
// jobs can run against the same data the event list was derived from.
type RowStore struct {
	mu   sync.RWMutex
	rows []domain.Row
}

func NewRowStore() *RowStore {
	return &RowStore{}
}

// SetRows replaces the snapshot. The slice is copied; callers may reuse
// their buffer.
func (s *RowStore) SetRows(rows []domain.Row) {
	cp := make([]domain.Row, len(rows))
	copy(cp, rows)
	s.mu.Lock()
	s.rows = cp
	s.mu.Unlock()
}

// Rows returns the current snapshot. The returned slice must not be
// mutated.
func (s *RowStore) Rows() []domain.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}
