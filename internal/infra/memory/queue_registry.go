package memory

import (
	"context"
	"sync"
	"time"
)

// QueueRegistry is an in-memory implementation of app.QueueRegistry.
type QueueRegistry struct {
	clock func() time.Time

	mu    sync.Mutex
	slots map[string]time.Time
}

func NewQueueRegistry() *QueueRegistry {
	return &QueueRegistry{
		clock: time.Now,
		slots: make(map[string]time.Time),
	}
}

func (r *QueueRegistry) TryAcquire(_ context.Context, subjectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[subjectID]; ok {
		return false, nil
	}
	r.slots[subjectID] = r.clock()
	return true, nil
}

func (r *QueueRegistry) Release(_ context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, subjectID)
	return nil
}

func (r *QueueRegistry) Sweep(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := r.clock().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, createdAt := range r.slots {
		if createdAt.Before(cutoff) {
			delete(r.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *QueueRegistry) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.slots)
	return nil
}

// Held reports whether subjectID currently holds a slot.
func (r *QueueRegistry) Held(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[subjectID]
	return ok
}
