package choice

import (
	"context"
	"fmt"

	"quran-quiz-bot/internal/domain"
)

// DefaultPulls bounds how many candidates a content search may draw.
const DefaultPulls = 10

// FirstMatch pulls candidates from next until keep accepts one, giving up
// after limit pulls. A failed pull ends the search.
func FirstMatch[T any](ctx context.Context, limit int, next func(context.Context) (T, error), keep func(T) bool) (T, error) {
	var zero T
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := next(ctx)
		if err != nil {
			return zero, fmt.Errorf("pull %d: %w: %w", i+1, domain.ErrInsufficientCandidates, err)
		}
		if keep(v) {
			return v, nil
		}
	}
	return zero, fmt.Errorf("no match in %d pulls: %w", limit, domain.ErrInsufficientCandidates)
}
