package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quran-quiz-bot/internal/domain"
)

// QueueRegistry records which users hold an open session of the gated quiz.
type QueueRegistry interface {
	// TryAcquire reserves the slot, false if it is already held.
	TryAcquire(ctx context.Context, subjectID string) (bool, error)
	Release(ctx context.Context, subjectID string) error
	// Sweep drops slots older than maxAge and returns how many it removed.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
	Clear(ctx context.Context) error
}

const releaseTimeout = 5 * time.Second

// QueueGuard hands out scoped queue slots.
type QueueGuard struct {
	registry QueueRegistry
}

func NewQueueGuard(registry QueueRegistry) *QueueGuard {
	return &QueueGuard{registry: registry}
}

// Acquire reserves the subject's slot. The returned release may be called any
// number of times; only the first call deletes the slot.
func (g *QueueGuard) Acquire(ctx context.Context, subjectID string) (func(), error) {
	if g.registry == nil {
		return func() {}, nil
	}
	ok, err := g.registry.TryAcquire(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("acquire queue slot: %w", err)
	}
	if !ok {
		return nil, domain.ErrQueueSlotConflict
	}

	var once sync.Once
	base := context.WithoutCancel(ctx)
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(base, releaseTimeout)
			defer cancel()
			if err := g.registry.Release(ctx, subjectID); err != nil {
				slog.ErrorContext(ctx, "app: release queue slot failed",
					"subject", subjectID,
					"error", err,
				)
			}
		})
	}, nil
}

// RunQueueSweeper removes stale slots every interval until ctx is done.
func RunQueueSweeper(ctx context.Context, registry QueueRegistry, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("queue sweeper started", "interval", interval, "max_age", maxAge)
	for {
		select {
		case <-ctx.Done():
			slog.Info("queue sweeper stopped")
			return nil
		case <-ticker.C:
			n, err := registry.Sweep(ctx, maxAge)
			if err != nil {
				slog.Error("queue sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("queue sweep removed stale slots", "count", n)
			}
		}
	}
}
