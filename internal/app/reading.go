package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/quran"
)

const (
	DefaultVersesPerPage = 5
	MaxVersesPerPage     = 10

	translationFetchLimit = 4
)

// RandomAyah picks a random verse, from chapterID when it is non-zero, and
// attaches its chapter and cleaned translation.
func (s *QuizService) RandomAyah(ctx context.Context, chapterID int) (domain.VerseCard, error) {
	var verse domain.Verse
	if chapterID == 0 {
		v, err := s.content.RandomVerse(ctx)
		if err != nil {
			return domain.VerseCard{}, fmt.Errorf("random verse: %w", err)
		}
		verse = v
	} else {
		verses, err := s.chapterVerses(ctx, chapterID)
		if err != nil {
			return domain.VerseCard{}, err
		}
		verse = verses[s.rnd.Intn(len(verses))]
	}

	card := domain.VerseCard{Verse: verse, Chapter: s.chapter(ctx, verse.ChapterID)}
	card.Translation = s.translation(ctx, verse.Key)
	return card, nil
}

// ChapterPage returns one page of a chapter with translations. perPage is
// clamped to [1, MaxVersesPerPage]; a page past the end is domain.ErrNotFound.
func (s *QuizService) ChapterPage(ctx context.Context, chapterID, page, perPage int) (domain.ChapterPage, error) {
	if perPage <= 0 {
		perPage = DefaultVersesPerPage
	}
	perPage = min(perPage, MaxVersesPerPage)
	page = max(page, 1)

	verses, err := s.chapterVerses(ctx, chapterID)
	if err != nil {
		return domain.ChapterPage{}, err
	}
	total := (len(verses) + perPage - 1) / perPage
	if page > total {
		return domain.ChapterPage{}, fmt.Errorf("chapter %d page %d of %d: %w", chapterID, page, total, domain.ErrNotFound)
	}
	verses = verses[(page-1)*perPage : min(page*perPage, len(verses))]

	cards := make([]domain.VerseCard, len(verses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(translationFetchLimit)
	for i, v := range verses {
		cards[i].Verse = v
		g.Go(func() error {
			cards[i].Translation = s.translation(gctx, v.Key)
			return nil
		})
	}
	_ = g.Wait()

	return domain.ChapterPage{
		Chapter:    s.chapter(ctx, chapterID),
		Verses:     cards,
		Page:       page,
		PerPage:    perPage,
		TotalPages: total,
	}, nil
}

// Stats gathers the user's progress for every quiz, in command order.
// Unknown users get domain.ErrNotRegistered.
func (s *QuizService) Stats(ctx context.Context, userID string) (domain.StatsReport, error) {
	report := domain.StatsReport{UserID: userID}
	for _, q := range s.Quizzes() {
		st, err := s.stats.GetUserStats(ctx, userID, q.Quiz)
		if err != nil {
			return domain.StatsReport{}, fmt.Errorf("load %s stats: %w", q.Quiz, err)
		}
		st.Quiz = q.Quiz
		report.XP = st.XP
		if st.Username != "" {
			report.Username = st.Username
		}
		report.Quizzes = append(report.Quizzes, st)
	}
	return report, nil
}

func (s *QuizService) chapterVerses(ctx context.Context, chapterID int) ([]domain.Verse, error) {
	if quran.VerseCount(chapterID) == 0 {
		return nil, fmt.Errorf("chapter %d: %w", chapterID, domain.ErrNotFound)
	}
	verses, err := s.content.ChapterVerses(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter %d verses: %w", chapterID, err)
	}
	if len(verses) == 0 {
		return nil, fmt.Errorf("chapter %d: %w", chapterID, domain.ErrNotFound)
	}
	return verses, nil
}

// translation returns the cleaned translation of key, or "" when it is missing.
func (s *QuizService) translation(ctx context.Context, key string) string {
	raw, err := s.content.Translation(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "app: translation lookup failed", "verse", key, "error", err)
		}
		return ""
	}
	return CleanTranslation(raw)
}
