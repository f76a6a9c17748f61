package memory

import (
	"context"
	"sync"
	"time"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/scoring"
)

// StatsStore keeps users and per-quiz progress in process memory.
type StatsStore struct {
	clock func() time.Time

	mu    sync.RWMutex
	users map[string]*user
}

type user struct {
	name  string
	xp    int
	stats map[domain.QuizType]domain.UserStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{
		clock: time.Now,
		users: make(map[string]*user),
	}
}

func (s *StatsStore) RegisterUser(_ context.Context, userID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return domain.ErrAlreadyRegistered
	}
	s.users[userID] = &user{name: username, stats: make(map[domain.QuizType]domain.UserStats)}
	return nil
}

func (s *StatsStore) GetUserStats(_ context.Context, userID string, quiz domain.QuizType) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrNotRegistered
	}
	return u.view(userID, quiz), nil
}

func (s *StatsStore) ApplyProgressDelta(_ context.Context, userID string, quiz domain.QuizType, d domain.ProgressDelta) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrNotRegistered
	}
	after := scoring.Apply(u.view(userID, quiz), d, s.clock())
	u.xp = after.XP
	u.stats[quiz] = after
	return after, nil
}

func (s *StatsStore) ApplyPenalty(_ context.Context, userID string, xp int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrNotRegistered
	}
	u.xp = max(0, u.xp-xp)
	return u.xp, nil
}

func (u *user) view(userID string, quiz domain.QuizType) domain.UserStats {
	st := u.stats[quiz]
	st.UserID = userID
	st.Username = u.name
	st.Quiz = quiz
	st.XP = u.xp
	return st
}
