// Package runs keeps recently completed screening runs in memory so the
// dashboard can list runs and serve exports. It is a bounded LRU, not a
// persistence layer: runs evict under pressure and vanish on restart.
package runs

import (
	"container/list"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/report"
)

// Run is one completed screening run.
type Run struct {
	ID           string                   `json:"id"`
	StartedAt    time.Time                `json:"startedAt"`
	DurationMs   int64                    `json:"durationMs"`
	Config       domain.DetectionConfig   `json:"config"`
	Transactions []domain.Transaction     `json:"-"`
	Verdicts     map[int64]domain.Verdict `json:"-"`
	Summary      report.Summary           `json:"summary"`
}

// Store is a thread-safe bounded LRU of completed runs.
type Store struct {
	mu      sync.RWMutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recent
}

// NewStore creates a run store holding at most maxSize runs.
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Put records a completed run, evicting the oldest if over capacity.
func (s *Store) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[run.ID]; ok {
		s.order.MoveToFront(elem)
		elem.Value = run
		return
	}

	s.items[run.ID] = s.order.PushFront(run)

	for s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Run).ID)
	}
}

// Get returns a run by ID.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return elem.Value.(*Run), true
}

// List returns all held runs, most recent first.
func (s *Store) List() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Run, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*Run))
	}
	return out
}

// Len returns the number of held runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
