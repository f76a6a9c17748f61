package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"quran-quiz-bot/internal/choice"
	"quran-quiz-bot/internal/domain"
)

// Dataset is the JSON document the content stores are seeded from.
type Dataset struct {
	Chapters []domain.Chapter `json:"chapters"`
	Verses   []domain.Verse   `json:"verses"`
	// Translations maps a verse key to its raw translation text.
	Translations map[string]string `json:"translations"`
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return DecodeDataset(f)
}

func DecodeDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	return ds, nil
}

// ContentStore is a content source backed by an in-memory dataset (useful for tests/demos).
type ContentStore struct {
	rnd          choice.Rand
	verses       []domain.Verse
	byKey        map[string]domain.Verse
	byChapter    map[int][]domain.Verse
	chapters     map[int]domain.Chapter
	translations map[string]string
}

func NewContentStore(ds Dataset) *ContentStore {
	s := &ContentStore{
		rnd:          choice.NewLockedRand(time.Now().UnixNano()),
		verses:       ds.Verses,
		byKey:        make(map[string]domain.Verse, len(ds.Verses)),
		byChapter:    make(map[int][]domain.Verse),
		chapters:     make(map[int]domain.Chapter, len(ds.Chapters)),
		translations: ds.Translations,
	}
	for _, v := range ds.Verses {
		s.byKey[v.Key] = v
		s.byChapter[v.ChapterID] = append(s.byChapter[v.ChapterID], v)
	}
	for id := range s.byChapter {
		vs := s.byChapter[id]
		sort.Slice(vs, func(i, j int) bool { return vs[i].Number < vs[j].Number })
	}
	for _, c := range ds.Chapters {
		s.chapters[c.ID] = c
	}
	if s.translations == nil {
		s.translations = make(map[string]string)
	}
	return s
}

func (s *ContentStore) RandomVerse(context.Context) (domain.Verse, error) {
	if len(s.verses) == 0 {
		return domain.Verse{}, domain.ErrNotFound
	}
	return s.verses[s.rnd.Intn(len(s.verses))], nil
}

func (s *ContentStore) VerseByKey(_ context.Context, key string) (domain.Verse, error) {
	v, ok := s.byKey[key]
	if !ok {
		return domain.Verse{}, fmt.Errorf("verse %s: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (s *ContentStore) ChapterVerses(_ context.Context, chapterID int) ([]domain.Verse, error) {
	vs, ok := s.byChapter[chapterID]
	if !ok {
		return nil, fmt.Errorf("chapter %d verses: %w", chapterID, domain.ErrNotFound)
	}
	out := make([]domain.Verse, len(vs))
	copy(out, vs)
	return out, nil
}

func (s *ContentStore) Chapter(_ context.Context, chapterID int) (domain.Chapter, error) {
	c, ok := s.chapters[chapterID]
	if !ok {
		return domain.Chapter{}, fmt.Errorf("chapter %d: %w", chapterID, domain.ErrNotFound)
	}
	return c, nil
}

func (s *ContentStore) Translation(_ context.Context, verseKey string) (string, error) {
	t, ok := s.translations[verseKey]
	if !ok {
		return "", fmt.Errorf("translation %s: %w", verseKey, domain.ErrNotFound)
	}
	return t, nil
}
