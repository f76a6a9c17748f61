package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/app"
	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/infra/memory"
	"quran-quiz-bot/internal/quran"
)

type fakeSurface struct {
	mu          sync.Mutex
	questions   []domain.Session
	results     []domain.Result
	notices       []domain.Notice
	questionErr   error
	questionPanic bool
}

func (s *fakeSurface) ShowQuestion(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, session)
	if s.questionPanic {
		panic("embed builder exploded")
	}
	return s.questionErr
}

func (s *fakeSurface) ShowResult(_ context.Context, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *fakeSurface) ShowNotice(_ context.Context, n domain.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return nil
}

func (s *fakeSurface) Results() []domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Result(nil), s.results...)
}

func (s *fakeSurface) Notices() []domain.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notice(nil), s.notices...)
}

func (s *fakeSurface) LastQuestion() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[len(s.questions)-1]
}

// recordingStats counts writes and can be told to fail them.
type recordingStats struct {
	*memory.StatsStore
	applyCalls atomic.Int32
	applyErr   error
	panicOnGet bool
}

func newStats(t *testing.T, users ...string) *recordingStats {
	t.Helper()
	s := &recordingStats{StatsStore: memory.NewStatsStore()}
	for _, u := range users {
		require.NoError(t, s.RegisterUser(context.Background(), u, strings.ToUpper(u)))
	}
	return s
}

func (s *recordingStats) GetUserStats(ctx context.Context, userID string, quiz domain.QuizType) (domain.UserStats, error) {
	if s.panicOnGet {
		panic("stats backend exploded")
	}
	return s.StatsStore.GetUserStats(ctx, userID, quiz)
}

func (s *recordingStats) ApplyProgressDelta(ctx context.Context, userID string, quiz domain.QuizType, d domain.ProgressDelta) (domain.UserStats, error) {
	s.applyCalls.Add(1)
	if s.applyErr != nil {
		return domain.UserStats{}, s.applyErr
	}
	return s.StatsStore.ApplyProgressDelta(ctx, userID, quiz, d)
}

// synthContent answers every lookup with generated verses.
type synthContent struct {
	next      atomic.Int64
	randomErr error
}

func (c *synthContent) verse(chapter, number int) domain.Verse {
	words := make([]string, 15)
	for i := range words {
		words[i] = fmt.Sprintf("w%d.%d.%d", chapter, number, i)
	}
	return domain.Verse{
		Key:        quran.VerseKey(chapter, number),
		ChapterID:  chapter,
		Number:     number,
		Glyph:      strings.Join(words, " ") + " ۝",
		PageNumber: 2,
		JuzNumber:  1,
	}
}

func (c *synthContent) RandomVerse(context.Context) (domain.Verse, error) {
	if c.randomErr != nil {
		return domain.Verse{}, c.randomErr
	}
	ch, n := quran.VerseAt(int(c.next.Add(37) % quran.TotalVerses))
	return c.verse(ch, n), nil
}

func (c *synthContent) VerseByKey(_ context.Context, key string) (domain.Verse, error) {
	ch, n, err := quran.ParseVerseKey(key)
	if err != nil || n < 1 || n > quran.VerseCount(ch) {
		return domain.Verse{}, domain.ErrNotFound
	}
	return c.verse(ch, n), nil
}

func (c *synthContent) ChapterVerses(_ context.Context, chapterID int) ([]domain.Verse, error) {
	out := make([]domain.Verse, quran.VerseCount(chapterID))
	for i := range out {
		out[i] = c.verse(chapterID, i+1)
	}
	return out, nil
}

func (c *synthContent) Chapter(_ context.Context, chapterID int) (domain.Chapter, error) {
	return quran.Chapter(chapterID), nil
}

func (c *synthContent) Translation(_ context.Context, key string) (string, error) {
	return "Translation <i>of</i> verse " + key + " foot_note=12", nil
}

func waitDone(t *testing.T, h *app.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session %s did not finish, state %s", h.Session().ID, h.State())
	}
}
