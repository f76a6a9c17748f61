package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// QueueRegistry keeps queue slots in the quiz_queue table.
type QueueRegistry struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewQueueRegistry(pool *pgxpool.Pool) *QueueRegistry {
	return &QueueRegistry{pool: pool, clock: time.Now}
}

func (r *QueueRegistry) TryAcquire(ctx context.Context, subjectID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_queue (subject_id, created_at) VALUES ($1, $2) ON CONFLICT (subject_id) DO NOTHING`,
		subjectID, r.clock().UTC())
	if err != nil {
		return false, fmt.Errorf("insert queue slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *QueueRegistry) Release(ctx context.Context, subjectID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM quiz_queue WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("delete queue slot: %w", err)
	}
	return nil
}

func (r *QueueRegistry) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quiz_queue WHERE created_at < $1`, r.clock().Add(-maxAge).UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep queue slots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *QueueRegistry) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM quiz_queue`); err != nil {
		return fmt.Errorf("clear queue slots: %w", err)
	}
	return nil
}
