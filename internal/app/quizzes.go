package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"quran-quiz-bot/internal/choice"
	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/quran"
)

const (
	chapterChoices     = 5
	chapterWindow      = 25
	translationChoices = 5
	minOrderVerses     = 10
	minMissingWords    = 13
	maxMissingWords    = 4
	minTranslationLen  = 20
	sameChapterLookups = 6
	wantDistractors    = 4
	missingPlaceholder = "___"
)

type tierRules struct {
	scoring   domain.ScoringTable
	timeLimit func(contentLen int) time.Duration
}

type built struct {
	question   domain.Question
	correct    string
	choices    domain.ChoiceSet
	contentLen int
}

// quizDefinition is everything that differs between two quiz commands.
type quizDefinition struct {
	command  string
	gated    bool
	practice bool
	tiers    map[domain.Tier]tierRules
	build    func(ctx context.Context, s *QuizService, req PlayRequest, stats domain.UserStats) (built, error)
}

func fixed(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func definitions() map[domain.QuizType]quizDefinition {
	return map[domain.QuizType]quizDefinition{
		domain.QuizChapter: {
			command:  "quran-quiz",
			practice: true,
			tiers: map[domain.Tier]tierRules{
				domain.TierBase:     {scoring: domain.ScoringTable{Reward: 10, WrongPenalty: 2, TimeoutPenalty: 1}, timeLimit: fixed(30 * time.Second)},
				domain.TierAdvanced: {scoring: domain.ScoringTable{Reward: 15, WrongPenalty: 5, TimeoutPenalty: 3}, timeLimit: fixed(45 * time.Second)},
			},
			build: buildChapterQuiz,
		},
		domain.QuizAyahOrder: {
			command:  "ayah-order-quiz",
			practice: true,
			tiers: map[domain.Tier]tierRules{
				domain.TierBase: {scoring: domain.ScoringTable{Reward: 10, WrongPenalty: 7, TimeoutPenalty: 1}, timeLimit: fixed(45 * time.Second)},
			},
			build: buildAyahOrderQuiz,
		},
		domain.QuizMissingWords: {
			command:  "missing-ayah-words-quiz",
			practice: true,
			tiers: map[domain.Tier]tierRules{
				domain.TierBase: {scoring: domain.ScoringTable{Reward: 10, WrongPenalty: 2, TimeoutPenalty: 1}, timeLimit: fixed(60 * time.Second)},
			},
			build: buildMissingWordsQuiz,
		},
		domain.QuizTranslation: {
			command: "quiz-ayah-translation",
			gated:   true,
			tiers: map[domain.Tier]tierRules{
				domain.TierBase: {
					scoring: domain.ScoringTable{Reward: 6, WrongPenalty: 3, TimeoutPenalty: 1},
					timeLimit: func(n int) time.Duration {
						return 45*time.Second + time.Duration(n)*500*time.Millisecond
					},
				},
			},
			build: buildTranslationQuiz,
		},
	}
}

func buildChapterQuiz(ctx context.Context, s *QuizService, req PlayRequest, _ domain.UserStats) (built, error) {
	verse, err := s.content.RandomVerse(ctx)
	if err != nil {
		return built{}, contentErr("random verse", err)
	}
	chapter := s.chapter(ctx, verse.ChapterID)

	var (
		set    domain.ChoiceSet
		layout domain.Layout
	)
	if req.Tier == domain.TierAdvanced {
		set, err = s.builder.Window(quran.ChapterLabels(), verse.ChapterID-1, chapterWindow)
		layout = domain.LayoutSelect
	} else {
		set, err = s.builder.Build(quran.ChapterName(verse.ChapterID), quran.ChapterNames(), chapterChoices)
		layout = domain.LayoutNamed
	}
	if err != nil {
		return built{}, err
	}

	return built{
		question: domain.Question{
			Prompt:  "Which chapter is this verse from?",
			Verses:  []domain.Verse{verse},
			Chapter: chapter,
			Layout:  layout,
		},
		choices:    set,
		contentLen: utf8.RuneCountInString(verse.Glyph),
	}, nil
}

func buildAyahOrderQuiz(ctx context.Context, s *QuizService, _ PlayRequest, _ domain.UserStats) (built, error) {
	candidates := quran.ChaptersWithAtLeast(minOrderVerses)
	picked := candidates[s.rnd.Intn(len(candidates))]

	first := s.rnd.Intn(picked.VersesCount) + 1
	second := s.rnd.Intn(picked.VersesCount-1) + 1
	if second >= first {
		second++
	}

	var verses [2]domain.Verse
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range []int{first, second} {
		g.Go(func() error {
			v, err := s.content.VerseByKey(gctx, quran.VerseKey(picked.ID, n))
			if err != nil {
				return contentErr("verse "+quran.VerseKey(picked.ID, n), err)
			}
			verses[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return built{}, err
	}
	chapter := s.chapter(ctx, picked.ID)

	return built{
		question: domain.Question{
			Prompt:  fmt.Sprintf("Does the first verse come before the second verse in %s?", chapter.NameSimple),
			Verses:  verses[:],
			Chapter: chapter,
			Layout:  domain.LayoutBoolean,
			Detail:  fmt.Sprintf("First verse: %s. Second verse: %s.", verses[0].Key, verses[1].Key),
		},
		correct:    strconv.FormatBool(first < second),
		contentLen: utf8.RuneCountInString(verses[0].Glyph) + utf8.RuneCountInString(verses[1].Glyph),
	}, nil
}

func buildMissingWordsQuiz(ctx context.Context, s *QuizService, _ PlayRequest, _ domain.UserStats) (built, error) {
	verse, err := choice.FirstMatch(ctx, choice.DefaultPulls, s.content.RandomVerse, func(v domain.Verse) bool {
		return len(strings.Fields(v.Glyph)) > minMissingWords
	})
	if err != nil {
		return built{}, err
	}

	original := TrimVerseMarker(verse.Glyph)
	modified, removed := RemoveWords(s.rnd, original, maxMissingWords)
	shown := verse
	shown.Glyph = modified

	options := make([]string, maxMissingWords+1)
	for i := range options {
		options[i] = strconv.Itoa(i)
	}

	return built{
		question: domain.Question{
			Prompt:  "How many words are missing from this verse?",
			Verses:  []domain.Verse{shown},
			Chapter: s.chapter(ctx, verse.ChapterID),
			Layout:  domain.LayoutNamed,
			Detail:  verse.Key,
		},
		choices:    domain.ChoiceSet{Options: options, CorrectIndex: removed},
		contentLen: utf8.RuneCountInString(modified),
	}, nil
}

func buildTranslationQuiz(ctx context.Context, s *QuizService, _ PlayRequest, stats domain.UserStats) (built, error) {
	verse, err := choice.FirstMatch(ctx, choice.DefaultPulls, s.content.RandomVerse, func(v domain.Verse) bool {
		return utf8.RuneCountInString(v.Glyph) > minTranslationLen
	})
	if err != nil {
		return built{}, err
	}

	raw, err := s.content.Translation(ctx, verse.Key)
	if err != nil {
		return built{}, contentErr("translation "+verse.Key, err)
	}
	correct := CleanTranslation(raw)

	pool, err := s.translationDistractors(ctx, verse, correct)
	if err != nil {
		return built{}, err
	}

	set, err := s.builder.BuildWithNone(correct, pool, translationChoices, choice.NoneOptions{
		Probability:   s.noneProbability,
		AttemptsToday: stats.AttemptsToday,
		Normalize:     true,
	})
	if err != nil {
		return built{}, err
	}

	return built{
		question: domain.Question{
			Prompt:  "Which translation matches this verse?",
			Verses:  []domain.Verse{verse},
			Chapter: s.chapter(ctx, verse.ChapterID),
			Layout:  domain.LayoutLettered,
			Detail:  correct,
		},
		choices:    set,
		contentLen: utf8.RuneCountInString(verse.Glyph),
	}, nil
}

// translationDistractors collects wrong translations, preferring verses of
// the same chapter and falling back to random verses.
func (s *QuizService) translationDistractors(ctx context.Context, verse domain.Verse, correct string) ([]string, error) {
	seen := map[string]struct{}{correct: {}}
	var out []string
	add := func(key string) {
		raw, err := s.content.Translation(ctx, key)
		if err != nil {
			slog.DebugContext(ctx, "app: distractor translation unavailable", "verse", key, "error", err)
			return
		}
		text := CleanTranslation(raw)
		if _, dup := seen[text]; dup || text == "" {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}

	siblings, err := s.content.ChapterVerses(ctx, verse.ChapterID)
	if err != nil {
		slog.WarnContext(ctx, "app: chapter verses unavailable", "chapter", verse.ChapterID, "error", err)
	}
	others := make([]domain.Verse, 0, len(siblings))
	for _, v := range siblings {
		if v.Key != verse.Key {
			others = append(others, v)
		}
	}
	for i, v := range choice.Shuffle(s.rnd, others) {
		if i >= sameChapterLookups || len(out) >= wantDistractors {
			break
		}
		add(v.Key)
	}

	for pulls := 0; len(out) < wantDistractors && pulls < choice.DefaultPulls; pulls++ {
		v, err := s.content.RandomVerse(ctx)
		if err != nil {
			break
		}
		if v.Key != verse.Key {
			add(v.Key)
		}
	}

	if len(out) < wantDistractors {
		return nil, fmt.Errorf("found %d of %d distractors: %w", len(out), wantDistractors, domain.ErrInsufficientCandidates)
	}
	return out, nil
}

// chapter returns the content record, or the catalog entry when the source fails.
func (s *QuizService) chapter(ctx context.Context, id int) domain.Chapter {
	c, err := s.content.Chapter(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "app: chapter lookup failed, using catalog", "chapter", id, "error", err)
		return quran.Chapter(id)
	}
	return c
}

func contentErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInsufficientCandidates, err)
}

// RemoveWords replaces between 0 and maxRemove random words of text with a
// placeholder and returns the new text and how many were removed.
func RemoveWords(rnd choice.Rand, text string, maxRemove int) (string, int) {
	words := strings.Fields(text)
	n := min(rnd.Intn(maxRemove+1), len(words))
	if n == 0 {
		return strings.Join(words, " "), 0
	}

	idx := make([]int, len(words))
	for i := range idx {
		idx[i] = i
	}
	for _, i := range choice.Shuffle(rnd, idx)[:n] {
		words[i] = missingPlaceholder
	}
	return strings.Join(words, " "), n
}

// TrimVerseMarker drops the trailing verse-number glyph.
func TrimVerseMarker(glyph string) string {
	glyph = strings.TrimSpace(glyph)
	_, size := utf8.DecodeLastRuneInString(glyph)
	return strings.TrimSpace(glyph[:len(glyph)-size])
}

var (
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
	footNote  = regexp.MustCompile(`foot_note=\d+`)
	spaceRuns = regexp.MustCompile(`\s+`)
)

// CleanTranslation strips markup and footnote references from a translation.
func CleanTranslation(text string) string {
	text = htmlTag.ReplaceAllString(text, "")
	text = footNote.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
