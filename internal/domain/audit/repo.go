package audit

import (
	"context"
	"sync"
)

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, q Query, limit, offset int) ([]*Entry, int, error)
}

// MemoryRepository keeps the trail in process memory. Single-node
// deployments without DATABASE_URL run on this; the trail is lost on
// restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Insert(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *entry
	r.entries = append(r.entries, &dup)
	return nil
}

// List returns matching entries newest first.
func (r *MemoryRepository) List(_ context.Context, q Query, limit, offset int) ([]*Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if q.matches(r.entries[i]) {
			dup := *r.entries[i]
			matched = append(matched, &dup)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*Entry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
