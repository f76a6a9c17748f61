package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quran-quiz-bot/internal/domain"
)

// StatsStore keeps users and per-quiz progress in Postgres. XP lives on the
// user row and is shared by every quiz type.
type StatsStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool, clock: time.Now}
}

func (s *StatsStore) RegisterUser(ctx context.Context, userID, username string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		userID, username)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

func (s *StatsStore) GetUserStats(ctx context.Context, userID string, quiz domain.QuizType) (domain.UserStats, error) {
	st := domain.UserStats{UserID: userID, Quiz: quiz}
	var updatedAt *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT u.username, u.xp,
		       COALESCE(s.streak, 0), COALESCE(s.attempts, 0), COALESCE(s.attempts_today, 0),
		       COALESCE(s.corrects, 0), COALESCE(s.timeouts, 0), s.updated_at
		FROM users u
		LEFT JOIN quiz_stats s ON s.user_id = u.id AND s.quiz = $2
		WHERE u.id = $1`, userID, string(quiz),
	).Scan(&st.Username, &st.XP, &st.Streak, &st.Attempts, &st.AttemptsToday, &st.Corrects, &st.Timeouts, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrNotRegistered
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load stats: %w", err)
	}
	if updatedAt != nil {
		st.UpdatedAt = updatedAt.UTC()
	}
	return st, nil
}

func (s *StatsStore) ApplyProgressDelta(ctx context.Context, userID string, quiz domain.QuizType, d domain.ProgressDelta) (domain.UserStats, error) {
	st := domain.UserStats{UserID: userID, Quiz: quiz}
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE users SET xp = GREATEST(0, xp + $2) WHERE id = $1 RETURNING username, xp`,
			userID, d.XP,
		).Scan(&st.Username, &st.XP)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("update xp: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO quiz_stats (user_id, quiz, streak, attempts, attempts_today, corrects, timeouts, updated_at)
			VALUES ($1, $2, $3, $4, $4, $5, $6, $8)
			ON CONFLICT (user_id, quiz) DO UPDATE SET
				streak = EXCLUDED.streak,
				attempts = quiz_stats.attempts + EXCLUDED.attempts,
				attempts_today = CASE WHEN $7 THEN 1 ELSE quiz_stats.attempts_today + EXCLUDED.attempts END,
				corrects = quiz_stats.corrects + EXCLUDED.corrects,
				timeouts = quiz_stats.timeouts + EXCLUDED.timeouts,
				updated_at = EXCLUDED.updated_at
			RETURNING streak, attempts, attempts_today, corrects, timeouts, updated_at`,
			userID, string(quiz), d.Streak, d.Attempts, d.Corrects, d.Timeouts, d.ResetToday, s.clock().UTC(),
		).Scan(&st.Streak, &st.Attempts, &st.AttemptsToday, &st.Corrects, &st.Timeouts, &st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert quiz stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.UserStats{}, err
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

func (s *StatsStore) ApplyPenalty(ctx context.Context, userID string, xp int) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET xp = GREATEST(0, xp - $2) WHERE id = $1 RETURNING xp`,
		userID, xp,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotRegistered
	}
	if err != nil {
		return 0, fmt.Errorf("apply penalty: %w", err)
	}
	return total, nil
}
