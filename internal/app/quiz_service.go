package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"quran-quiz-bot/internal/choice"
	"quran-quiz-bot/internal/domain"
)

// StatsStore persists users and their per-quiz progress.
type StatsStore interface {
	// GetUserStats returns domain.ErrNotRegistered for unknown users.
	GetUserStats(ctx context.Context, userID string, quiz domain.QuizType) (domain.UserStats, error)
	RegisterUser(ctx context.Context, userID, username string) error
	ApplyProgressDelta(ctx context.Context, userID string, quiz domain.QuizType, d domain.ProgressDelta) (domain.UserStats, error)
	// ApplyPenalty subtracts xp, floored at zero, and returns the new total.
	ApplyPenalty(ctx context.Context, userID string, xp int) (int, error)
}

// ContentSource supplies verse, chapter and translation records.
type ContentSource interface {
	RandomVerse(ctx context.Context) (domain.Verse, error)
	VerseByKey(ctx context.Context, key string) (domain.Verse, error)
	ChapterVerses(ctx context.Context, chapterID int) ([]domain.Verse, error)
	Chapter(ctx context.Context, chapterID int) (domain.Chapter, error)
	Translation(ctx context.Context, verseKey string) (string, error)
}

const (
	defaultNoneProbability = 0.7
	defaultQueuePenalty    = 3
)

type Config struct {
	Stats      StatsStore
	Content    ContentSource
	Queue      QueueRegistry
	Controller *Controller
	Events     Publisher
	Rand       choice.Rand
	// NoneProbability is the chance the translation quiz shows the correct translation.
	NoneProbability float64
	QueuePenalty    int
	Now             func() time.Time
	NewID           func() string
}

// QuizService opens quiz sessions for chat commands.
type QuizService struct {
	stats      StatsStore
	content    ContentSource
	guard      *QueueGuard
	controller *Controller
	events     Publisher
	rnd        choice.Rand
	builder    *choice.Builder
	now        func() time.Time
	newID      func() string

	noneProbability float64
	queuePenalty    int
	quizzes         map[domain.QuizType]quizDefinition
}

func NewQuizService(c Config) *QuizService {
	if c.Rand == nil {
		c.Rand = choice.NewLockedRand(time.Now().UnixNano())
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = newSessionID
	}
	if c.Events == nil {
		c.Events = nopPublisher{}
	}
	if c.NoneProbability <= 0 {
		c.NoneProbability = defaultNoneProbability
	}
	if c.QueuePenalty <= 0 {
		c.QueuePenalty = defaultQueuePenalty
	}
	return &QuizService{
		stats:           c.Stats,
		content:         c.Content,
		guard:           NewQueueGuard(c.Queue),
		controller:      c.Controller,
		events:          c.Events,
		rnd:             c.Rand,
		builder:         choice.NewBuilder(c.Rand),
		now:             c.Now,
		newID:           c.NewID,
		noneProbability: c.NoneProbability,
		queuePenalty:    c.QueuePenalty,
		quizzes:         definitions(),
	}
}

// PlayRequest is one quiz command invocation.
type PlayRequest struct {
	Quiz      domain.QuizType
	Tier      domain.Tier
	Practice  bool
	SubjectID string
}

// Play builds a question for req, shows it and hands the session to the
// controller. Every failure is reported on the surface before it is returned.
func (s *QuizService) Play(ctx context.Context, req PlayRequest, surface Surface) (h *Handle, err error) {
	def, ok := s.quizzes[req.Quiz]
	if !ok {
		return nil, fmt.Errorf("unknown quiz %q", req.Quiz)
	}
	rules, ok := def.tiers[req.Tier]
	if !ok {
		req.Tier = domain.TierBase
		rules = def.tiers[domain.TierBase]
	}
	if !def.practice {
		req.Practice = false
	}

	stats, err := s.stats.GetUserStats(ctx, req.SubjectID, req.Quiz)
	if errors.Is(err, domain.ErrNotRegistered) {
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeNotRegistered, Quiz: req.Quiz})
		return nil, err
	}
	if err != nil {
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeFailure, Quiz: req.Quiz})
		return nil, fmt.Errorf("load stats: %w", err)
	}

	release := func() {}
	if def.gated {
		release, err = s.guard.Acquire(ctx, req.SubjectID)
		if errors.Is(err, domain.ErrQueueSlotConflict) {
			s.refuse(ctx, surface, req, stats)
			return nil, err
		}
		if err != nil {
			s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeFailure, Quiz: req.Quiz})
			return nil, err
		}
	}

	handed := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build %s quiz: panic: %v", req.Quiz, r)
			slog.ErrorContext(ctx, "app: quiz build panic", "error", fmt.Errorf("%v, stack: %s", r, debug.Stack()))
			if h != nil {
				// The controller owns the slot now; failing the handle releases it.
				h.Fail(ctx, err)
				h = nil
			} else {
				s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeFailure, Quiz: req.Quiz})
			}
		}
		if !handed {
			release()
		}
	}()

	b, err := def.build(ctx, s, req, stats)
	if err != nil {
		slog.WarnContext(ctx, "app: build question failed",
			"quiz", req.Quiz,
			"subject", req.SubjectID,
			"error", err,
		)
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeTryAgain, Quiz: req.Quiz})
		return nil, err
	}

	session, err := domain.NewSession(domain.SessionParams{
		ID:            s.newID(),
		SubjectID:     req.SubjectID,
		Quiz:          req.Quiz,
		Tier:          req.Tier,
		Practice:      req.Practice,
		Question:      b.question,
		CorrectAnswer: b.correct,
		Choices:       b.choices,
		Scoring:       rules.scoring,
		TimeLimit:     rules.timeLimit(b.contentLen),
		Stats:         stats,
	}, s.now())
	if err != nil {
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeFailure, Quiz: req.Quiz})
		return nil, err
	}

	h = s.controller.Start(ctx, session, surface, release)
	handed = true
	if err := surface.ShowQuestion(ctx, session); err != nil {
		h.Fail(ctx, err)
		return nil, fmt.Errorf("show question: %w", err)
	}
	return h, nil
}

// Register creates the user's record.
func (s *QuizService) Register(ctx context.Context, userID, username string, surface Surface) error {
	err := s.stats.RegisterUser(ctx, userID, username)
	switch {
	case errors.Is(err, domain.ErrAlreadyRegistered):
		stats, _ := s.stats.GetUserStats(ctx, userID, domain.QuizChapter)
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeAlreadyRegistered, XP: stats.XP})
		return nil
	case err != nil:
		s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeFailure})
		return fmt.Errorf("register user: %w", err)
	}
	s.notify(ctx, surface, domain.Notice{Kind: domain.NoticeRegistered})
	return nil
}

// Command returns the chat command name of quiz.
func (s *QuizService) Command(quiz domain.QuizType) string {
	return s.quizzes[quiz].command
}

// QuizInfo describes one quiz command for the platform's command registry.
type QuizInfo struct {
	Quiz     domain.QuizType
	Command  string
	Tiers    []domain.Tier
	Practice bool
}

// Quizzes lists every quiz ordered by command name.
func (s *QuizService) Quizzes() []QuizInfo {
	out := make([]QuizInfo, 0, len(s.quizzes))
	for quiz, def := range s.quizzes {
		info := QuizInfo{Quiz: quiz, Command: def.command, Practice: def.practice}
		for _, t := range []domain.Tier{domain.TierBase, domain.TierAdvanced} {
			if _, ok := def.tiers[t]; ok {
				info.Tiers = append(info.Tiers, t)
			}
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b QuizInfo) int { return strings.Compare(a.Command, b.Command) })
	return out
}

// QuizForCommand maps a chat command name back to its quiz.
func (s *QuizService) QuizForCommand(name string) (domain.QuizType, bool) {
	for quiz, def := range s.quizzes {
		if def.command == name {
			return quiz, true
		}
	}
	return "", false
}

func (s *QuizService) refuse(ctx context.Context, surface Surface, req PlayRequest, stats domain.UserStats) {
	xp, err := s.stats.ApplyPenalty(ctx, req.SubjectID, s.queuePenalty)
	if err != nil {
		slog.ErrorContext(ctx, "app: apply queue penalty failed",
			"subject", req.SubjectID,
			"error", err,
		)
		xp = max(0, stats.XP-s.queuePenalty)
	}
	s.events.Publish(ctx, domain.EventQueueConflict{SubjectID: req.SubjectID, Quiz: req.Quiz})
	s.notify(ctx, surface, domain.Notice{
		Kind:    domain.NoticeQueueConflict,
		Quiz:    req.Quiz,
		XP:      xp,
		Penalty: s.queuePenalty,
	})
}

func (s *QuizService) notify(ctx context.Context, surface Surface, n domain.Notice) {
	if err := surface.ShowNotice(ctx, n); err != nil {
		slog.ErrorContext(ctx, "app: render notice failed",
			"notice", n.Kind,
			"error", err,
		)
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
