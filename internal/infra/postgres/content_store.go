package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quran-quiz-bot/internal/domain"
)

const verseColumns = `verse_key, chapter_id, verse_number, code_v2, page_number, juz_number`

// ContentStore loads verses, chapters and translations from Postgres.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func (s *ContentStore) RandomVerse(ctx context.Context) (domain.Verse, error) {
	return s.verse(ctx, `SELECT `+verseColumns+` FROM verses ORDER BY random() LIMIT 1`)
}

func (s *ContentStore) VerseByKey(ctx context.Context, key string) (domain.Verse, error) {
	return s.verse(ctx, `SELECT `+verseColumns+` FROM verses WHERE verse_key = $1`, key)
}

func (s *ContentStore) ChapterVerses(ctx context.Context, chapterID int) ([]domain.Verse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+verseColumns+` FROM verses WHERE chapter_id = $1 ORDER BY verse_number`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("query chapter verses: %w", err)
	}
	defer rows.Close()

	var out []domain.Verse
	for rows.Next() {
		v, err := scanVerse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chapter verses: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chapter %d verses: %w", chapterID, domain.ErrNotFound)
	}
	return out, nil
}

func (s *ContentStore) Chapter(ctx context.Context, chapterID int) (domain.Chapter, error) {
	var c domain.Chapter
	err := s.pool.QueryRow(ctx, `
		SELECT id, name_simple, name_arabic, verses_count, revelation_place
		FROM chapters WHERE id = $1`, chapterID,
	).Scan(&c.ID, &c.NameSimple, &c.NameArabic, &c.VersesCount, &c.RevelationPlace)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Chapter{}, fmt.Errorf("chapter %d: %w", chapterID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("load chapter: %w", err)
	}
	return c, nil
}

func (s *ContentStore) Translation(ctx context.Context, verseKey string) (string, error) {
	var text string
	err := s.pool.QueryRow(ctx, `SELECT text FROM translations WHERE verse_key = $1`, verseKey).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("translation %s: %w", verseKey, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load translation: %w", err)
	}
	return text, nil
}

func (s *ContentStore) verse(ctx context.Context, query string, args ...interface{}) (domain.Verse, error) {
	v, err := scanVerse(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Verse{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Verse{}, fmt.Errorf("load verse: %w", err)
	}
	return v, nil
}

func scanVerse(row pgx.Row) (domain.Verse, error) {
	var v domain.Verse
	err := row.Scan(&v.Key, &v.ChapterID, &v.Number, &v.Glyph, &v.PageNumber, &v.JuzNumber)
	return v, err
}
