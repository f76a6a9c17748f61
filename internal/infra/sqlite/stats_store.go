// Package sqlite provides an embedded stats store for single-instance deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"quran-quiz-bot/internal/domain"
)

// StatsStore implements app.StatsStore using SQLite.
type StatsStore struct {
	db      *sql.DB
	clock   func() time.Time
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

// NewStatsStore opens (and creates) the database at path.
func NewStatsStore(path string) (*StatsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &StatsStore{db: db, clock: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *StatsStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		xp INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS quiz_stats (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		quiz TEXT NOT NULL,
		streak INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		attempts_today INTEGER NOT NULL DEFAULT 0,
		corrects INTEGER NOT NULL DEFAULT 0,
		timeouts INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER,
		PRIMARY KEY (user_id, quiz)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *StatsStore) Close() error {
	return s.db.Close()
}

func (s *StatsStore) RegisterUser(ctx context.Context, userID, username string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		userID, username, s.clock().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyRegistered
	}
	return nil
}

func (s *StatsStore) GetUserStats(ctx context.Context, userID string, quiz domain.QuizType) (domain.UserStats, error) {
	return getStats(ctx, s.db, userID, quiz)
}

func (s *StatsStore) ApplyProgressDelta(ctx context.Context, userID string, quiz domain.QuizType, d domain.ProgressDelta) (domain.UserStats, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET xp = MAX(0, xp + ?) WHERE id = ?`, d.XP, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("update xp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.UserStats{}, domain.ErrNotRegistered
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quiz_stats (user_id, quiz, streak, attempts, attempts_today, corrects, timeouts, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?4, ?5, ?6, ?8)
		ON CONFLICT(user_id, quiz) DO UPDATE SET
			streak = excluded.streak,
			attempts = quiz_stats.attempts + excluded.attempts,
			attempts_today = CASE WHEN ?7 THEN 1 ELSE quiz_stats.attempts_today + excluded.attempts END,
			corrects = quiz_stats.corrects + excluded.corrects,
			timeouts = quiz_stats.timeouts + excluded.timeouts,
			updated_at = excluded.updated_at`,
		userID, string(quiz), d.Streak, d.Attempts, d.Corrects, d.Timeouts, d.ResetToday, s.clock().UnixMilli())
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("upsert quiz stats: %w", err)
	}

	st, err := getStats(ctx, tx, userID, quiz)
	if err != nil {
		return domain.UserStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.UserStats{}, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

func (s *StatsStore) ApplyPenalty(ctx context.Context, userID string, xp int) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var total int
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET xp = MAX(0, xp - ?) WHERE id = ? RETURNING xp`, xp, userID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotRegistered
	}
	if err != nil {
		return 0, fmt.Errorf("apply penalty: %w", err)
	}
	return total, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getStats(ctx context.Context, q queryer, userID string, quiz domain.QuizType) (domain.UserStats, error) {
	st := domain.UserStats{UserID: userID, Quiz: quiz}
	var updatedAt sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT u.username, u.xp,
		       COALESCE(s.streak, 0), COALESCE(s.attempts, 0), COALESCE(s.attempts_today, 0),
		       COALESCE(s.corrects, 0), COALESCE(s.timeouts, 0), s.updated_at
		FROM users u
		LEFT JOIN quiz_stats s ON s.user_id = u.id AND s.quiz = ?
		WHERE u.id = ?`, string(quiz), userID,
	).Scan(&st.Username, &st.XP, &st.Streak, &st.Attempts, &st.AttemptsToday, &st.Corrects, &st.Timeouts, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, domain.ErrNotRegistered
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load stats: %w", err)
	}
	if updatedAt.Valid {
		st.UpdatedAt = time.UnixMilli(updatedAt.Int64).UTC()
	}
	return st, nil
}
