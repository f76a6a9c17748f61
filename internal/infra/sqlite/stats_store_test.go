package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/domain"
)

func newStore(t *testing.T) *StatsStore {
	t.Helper()
	s, err := NewStatsStore(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStatsStoreRegister(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetUserStats(ctx, "u1", domain.QuizChapter)
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	require.NoError(t, s.RegisterUser(ctx, "u1", "Alice"))
	require.ErrorIs(t, s.RegisterUser(ctx, "u1", "Alice"), domain.ErrAlreadyRegistered)

	st, err := s.GetUserStats(ctx, "u1", domain.QuizChapter)
	require.NoError(t, err)
	require.Equal(t, "Alice", st.Username)
	require.True(t, st.UpdatedAt.IsZero())
}

func TestStatsStoreApplyProgressDelta(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	s := newStore(t)
	s.clock = func() time.Time { return now }
	require.NoError(t, s.RegisterUser(ctx, "u1", "Alice"))

	st, err := s.ApplyProgressDelta(ctx, "u1", domain.QuizChapter, domain.ProgressDelta{XP: 10, Streak: 1, Attempts: 1, Corrects: 1})
	require.NoError(t, err)
	require.Equal(t, 10, st.XP)
	require.Equal(t, 1, st.AttemptsToday)
	require.Equal(t, now, st.UpdatedAt)

	st, err = s.ApplyProgressDelta(ctx, "u1", domain.QuizChapter, domain.ProgressDelta{XP: -2, Attempts: 1})
	require.NoError(t, err)
	require.Equal(t, 8, st.XP)
	require.Zero(t, st.Streak)
	require.Equal(t, 2, st.Attempts)
	require.Equal(t, 2, st.AttemptsToday)

	now = now.Add(24 * time.Hour)
	st, err = s.ApplyProgressDelta(ctx, "u1", domain.QuizChapter, domain.ProgressDelta{XP: -100, Attempts: 1, ResetToday: true, Timeouts: 1})
	require.NoError(t, err)
	require.Zero(t, st.XP, "xp floors at zero")
	require.Equal(t, 1, st.AttemptsToday)
	require.Equal(t, 1, st.Timeouts)

	other, err := s.GetUserStats(ctx, "u1", domain.QuizAyahOrder)
	require.NoError(t, err)
	require.Zero(t, other.Attempts)

	_, err = s.ApplyProgressDelta(ctx, "nobody", domain.QuizChapter, domain.ProgressDelta{XP: 1, Attempts: 1})
	require.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestStatsStorePenalty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.RegisterUser(ctx, "u1", "Alice"))
	_, err := s.ApplyProgressDelta(ctx, "u1", domain.QuizTranslation, domain.ProgressDelta{XP: 5, Attempts: 1})
	require.NoError(t, err)

	xp, err := s.ApplyPenalty(ctx, "u1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, xp)
	xp, err = s.ApplyPenalty(ctx, "u1", 3)
	require.NoError(t, err)
	require.Zero(t, xp)

	_, err = s.ApplyPenalty(ctx, "nobody", 3)
	require.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestStatsStoreConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.RegisterUser(ctx, "u1", "Alice"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ApplyProgressDelta(ctx, "u1", domain.QuizChapter, domain.ProgressDelta{XP: 1, Attempts: 1})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := s.GetUserStats(ctx, "u1", domain.QuizChapter)
	require.NoError(t, err)
	require.Equal(t, 20, st.XP)
	require.Equal(t, 20, st.Attempts)
}
