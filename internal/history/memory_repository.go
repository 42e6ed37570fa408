package history

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It keeps at most capacity records, evicting the oldest.
type InMemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	records  map[string]Record
	order    []string // insertion order, oldest first
}

// NewInMemoryRepository creates a new in-memory history repository.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &InMemoryRepository{
		capacity: capacity,
		records:  make(map[string]Record),
	}
}

// Save stores a record.
func (r *InMemoryRepository) Save(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return nil
	}

	r.records[rec.ID] = copyRecord(rec)
	r.order = append(r.order, rec.ID)

	for len(r.order) > r.capacity {
		delete(r.records, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// Get retrieves a record by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

// List returns the most recent records, newest first.
func (r *InMemoryRepository) List(_ context.Context, limit int) ([]Record, error) {
	limit = ClampLimit(limit)

	r.mu.RLock()
	items := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		items = append(items, copyRecord(rec))
	}
	r.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func copyRecord(rec Record) Record {
	rec.Modes = append([]string(nil), rec.Modes...)
	rec.FailedModes = append([]string(nil), rec.FailedModes...)
	return rec
}
