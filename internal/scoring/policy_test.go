package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/scoring"
)

var now = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func session(practice bool) domain.Session {
	return domain.Session{
		SubjectID:     "u1",
		CorrectAnswer: "B",
		Practice:      practice,
		Scoring:       domain.ScoringTable{Reward: 10, WrongPenalty: 2, TimeoutPenalty: 1},
	}
}

func TestPolicy_Score(t *testing.T) {
	p := scoring.NewPolicyWithClock(func() time.Time { return now })

	tests := map[string]struct {
		stats   domain.UserStats
		outcome domain.Outcome
		want    domain.ProgressDelta
	}{
		"correct answer rewards and extends the streak": {
			stats:   domain.UserStats{XP: 40, Streak: 3, UpdatedAt: now.Add(-time.Hour)},
			outcome: domain.OutcomeCorrect,
			want:    domain.ProgressDelta{XP: 10, Streak: 4, Attempts: 1, Corrects: 1},
		},
		"wrong answer resets the streak": {
			stats:   domain.UserStats{XP: 40, Streak: 7, UpdatedAt: now},
			outcome: domain.OutcomeWrong,
			want:    domain.ProgressDelta{XP: -2, Attempts: 1},
		},
		"timeout resets the streak and counts": {
			stats:   domain.UserStats{XP: 40, Streak: 2, UpdatedAt: now},
			outcome: domain.OutcomeTimeout,
			want:    domain.ProgressDelta{XP: -1, Attempts: 1, Timeouts: 1},
		},
		"timeout with no XP is floored": {
			stats:   domain.UserStats{XP: 0, Streak: 2, UpdatedAt: now},
			outcome: domain.OutcomeTimeout,
			want:    domain.ProgressDelta{XP: 0, Attempts: 1, Timeouts: 1},
		},
		"wrong answer larger than XP is floored": {
			stats:   domain.UserStats{XP: 1},
			outcome: domain.OutcomeWrong,
			want:    domain.ProgressDelta{XP: -1, Attempts: 1},
		},
		"first play of a new day resets the daily counter": {
			stats:   domain.UserStats{XP: 5, UpdatedAt: now.AddDate(0, 0, -1)},
			outcome: domain.OutcomeCorrect,
			want:    domain.ProgressDelta{XP: 10, Streak: 1, Attempts: 1, ResetToday: true, Corrects: 1},
		},
		"practice changes nothing": {
			stats:   domain.UserStats{XP: 5, Streak: 2},
			outcome: domain.OutcomePractice,
			want:    domain.ProgressDelta{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := p.Score(session(false), tc.stats, tc.outcome)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPolicy_PracticeSession(t *testing.T) {
	p := scoring.NewPolicyWithClock(func() time.Time { return now })
	require.True(t, p.Score(session(true), domain.UserStats{XP: 9}, domain.OutcomeCorrect).IsZero())
}

func TestPolicy_ScoreFloor(t *testing.T) {
	p := scoring.NewPolicyWithClock(func() time.Time { return now })
	for oldXP := 0; oldXP < 10; oldXP++ {
		for penalty := oldXP + 1; penalty < 15; penalty++ {
			s := session(false)
			s.Scoring.WrongPenalty = penalty
			s.Scoring.TimeoutPenalty = penalty
			for _, o := range []domain.Outcome{domain.OutcomeWrong, domain.OutcomeTimeout} {
				stats := domain.UserStats{XP: oldXP}
				after := scoring.Apply(stats, p.Score(s, stats, o), now)
				require.GreaterOrEqual(t, after.XP, 0)
			}
		}
	}
}

func TestPolicy_StreakLaw(t *testing.T) {
	p := scoring.NewPolicyWithClock(func() time.Time { return now })
	for streak := 0; streak < 20; streak++ {
		stats := domain.UserStats{XP: 50, Streak: streak}
		require.Zero(t, p.Score(session(false), stats, domain.OutcomeWrong).Streak)
		require.Zero(t, p.Score(session(false), stats, domain.OutcomeTimeout).Streak)
		require.Equal(t, streak+1, p.Score(session(false), stats, domain.OutcomeCorrect).Streak)
	}
}

func TestApply(t *testing.T) {
	stats := domain.UserStats{XP: 95, Streak: 1, Attempts: 4, AttemptsToday: 3, Corrects: 2, UpdatedAt: now.AddDate(0, 0, -2)}
	d := domain.ProgressDelta{XP: 10, Streak: 2, Attempts: 1, ResetToday: true, Corrects: 1}

	after := scoring.Apply(stats, d, now)
	require.Equal(t, 105, after.XP)
	require.Equal(t, 2, after.Level())
	require.Equal(t, 2, after.Streak)
	require.Equal(t, 5, after.Attempts)
	require.Equal(t, 1, after.AttemptsToday)
	require.Equal(t, 3, after.Corrects)
	require.Equal(t, now, after.UpdatedAt)

	require.Equal(t, stats, scoring.Apply(stats, domain.ProgressDelta{}, now))
}

func TestSameDay(t *testing.T) {
	require.True(t, scoring.SameDay(now, now.Add(2*time.Hour)))
	require.False(t, scoring.SameDay(now, now.Add(15*time.Hour)))
	local := time.FixedZone("UTC+10", 10*3600)
	require.True(t, scoring.SameDay(now, now.In(local)))
}
