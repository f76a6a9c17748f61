package scoring

import (
	"time"

	"quran-quiz-bot/internal/domain"
)

// Policy maps a resolved session to the progress it earns.
type Policy struct {
	now func() time.Time
}

func NewPolicy() *Policy {
	return NewPolicyWithClock(time.Now)
}

// NewPolicyWithClock pins the day used for the daily attempt counter.
func NewPolicyWithClock(now func() time.Time) *Policy {
	return &Policy{now: now}
}

// Score computes the delta for outcome given the stats before the session.
// XP penalties never take the total below zero.
func (p *Policy) Score(s domain.Session, stats domain.UserStats, outcome domain.Outcome) domain.ProgressDelta {
	if s.Practice || outcome == domain.OutcomePractice || outcome == domain.OutcomeNone {
		return domain.ProgressDelta{}
	}

	d := domain.ProgressDelta{
		Attempts:   1,
		ResetToday: !stats.UpdatedAt.IsZero() && !SameDay(stats.UpdatedAt, p.now()),
	}
	switch outcome {
	case domain.OutcomeCorrect:
		d.XP = s.Scoring.Reward
		d.Streak = stats.Streak + 1
		d.Corrects = 1
	case domain.OutcomeWrong:
		d.XP = -min(s.Scoring.WrongPenalty, max(stats.XP, 0))
	case domain.OutcomeTimeout:
		d.XP = -min(s.Scoring.TimeoutPenalty, max(stats.XP, 0))
		d.Timeouts = 1
	}
	return d
}

// Apply returns stats with delta applied, the way the stores apply it.
func Apply(stats domain.UserStats, d domain.ProgressDelta, now time.Time) domain.UserStats {
	if d.IsZero() {
		return stats
	}
	stats.XP = max(0, stats.XP+d.XP)
	stats.Streak = d.Streak
	stats.Attempts += d.Attempts
	if d.ResetToday {
		stats.AttemptsToday = 1
	} else {
		stats.AttemptsToday += d.Attempts
	}
	stats.Corrects += d.Corrects
	stats.Timeouts += d.Timeouts
	stats.UpdatedAt = now
	return stats
}

// SameDay compares calendar days in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
