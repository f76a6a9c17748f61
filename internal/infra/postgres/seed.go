package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quran-quiz-bot/internal/infra/memory"
)

const seedBatch = 500

type chapterRow struct {
	bun.BaseModel `bun:"table:chapters"`

	ID              int    `bun:"id,pk"`
	NameSimple      string `bun:"name_simple"`
	NameArabic      string `bun:"name_arabic"`
	VersesCount     int    `bun:"verses_count"`
	RevelationPlace string `bun:"revelation_place"`
}

type verseRow struct {
	bun.BaseModel `bun:"table:verses"`

	Key        string `bun:"verse_key,pk"`
	ChapterID  int    `bun:"chapter_id"`
	Number     int    `bun:"verse_number"`
	Glyph      string `bun:"code_v2"`
	PageNumber int    `bun:"page_number"`
	JuzNumber  int    `bun:"juz_number"`
}

type translationRow struct {
	bun.BaseModel `bun:"table:translations"`

	VerseKey string `bun:"verse_key,pk"`
	Text     string `bun:"text"`
}

// SeedReport counts the rows written by Seed.
type SeedReport struct {
	Chapters     int
	Verses       int
	Translations int
}

// Seed upserts a content dataset in one transaction.
func Seed(ctx context.Context, db *bun.DB, ds memory.Dataset) (SeedReport, error) {
	chapters := make([]chapterRow, len(ds.Chapters))
	for i, c := range ds.Chapters {
		chapters[i] = chapterRow{ID: c.ID, NameSimple: c.NameSimple, NameArabic: c.NameArabic, VersesCount: c.VersesCount, RevelationPlace: c.RevelationPlace}
	}
	verses := make([]verseRow, len(ds.Verses))
	for i, v := range ds.Verses {
		verses[i] = verseRow{Key: v.Key, ChapterID: v.ChapterID, Number: v.Number, Glyph: v.Glyph, PageNumber: v.PageNumber, JuzNumber: v.JuzNumber}
	}
	translations := make([]translationRow, 0, len(ds.Translations))
	for key, text := range ds.Translations {
		translations = append(translations, translationRow{VerseKey: key, Text: text})
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := upsert(ctx, tx, chapters, "(id)",
			"name_simple = EXCLUDED.name_simple", "name_arabic = EXCLUDED.name_arabic",
			"verses_count = EXCLUDED.verses_count", "revelation_place = EXCLUDED.revelation_place"); err != nil {
			return fmt.Errorf("seed chapters: %w", err)
		}
		if err := upsert(ctx, tx, verses, "(verse_key)",
			"chapter_id = EXCLUDED.chapter_id", "verse_number = EXCLUDED.verse_number", "code_v2 = EXCLUDED.code_v2",
			"page_number = EXCLUDED.page_number", "juz_number = EXCLUDED.juz_number"); err != nil {
			return fmt.Errorf("seed verses: %w", err)
		}
		if err := upsert(ctx, tx, translations, "(verse_key)", "text = EXCLUDED.text"); err != nil {
			return fmt.Errorf("seed translations: %w", err)
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	return SeedReport{Chapters: len(chapters), Verses: len(verses), Translations: len(translations)}, nil
}

func upsert[T any](ctx context.Context, tx bun.Tx, rows []T, conflict string, set ...string) error {
	for start := 0; start < len(rows); start += seedBatch {
		batch := rows[start:min(start+seedBatch, len(rows))]
		q := tx.NewInsert().Model(&batch).On("CONFLICT " + conflict + " DO UPDATE")
		for _, s := range set {
			q = q.Set(s)
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
