package quran

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	total := 0
	seen := make(map[string]bool)
	for i, e := range catalog {
		require.Equal(t, i+1, e.id)
		require.False(t, seen[e.name], "duplicate name %s", e.name)
		seen[e.name] = true
		total += e.verses
	}
	require.Equal(t, TotalVerses, total)
	require.Equal(t, "Yusuf", ChapterName(12))
	require.Equal(t, "Chapter 115", ChapterName(115))
	require.Equal(t, "12. Yusuf", ChapterLabels()[11])
}

func TestChaptersWithAtLeast(t *testing.T) {
	for _, c := range ChaptersWithAtLeast(10) {
		require.GreaterOrEqual(t, c.VersesCount, 10)
	}
	require.Len(t, ChaptersWithAtLeast(1), ChapterCount)
}

func TestVerseKey(t *testing.T) {
	c, v, err := ParseVerseKey(VerseKey(2, 255))
	require.NoError(t, err)
	require.Equal(t, 2, c)
	require.Equal(t, 255, v)

	_, _, err = ParseVerseKey("2-255")
	require.Error(t, err)
}

func TestVerseAt(t *testing.T) {
	c, v := VerseAt(0)
	require.Equal(t, 1, c)
	require.Equal(t, 1, v)

	c, v = VerseAt(7)
	require.Equal(t, 2, c)
	require.Equal(t, 1, v)

	c, v = VerseAt(TotalVerses - 1)
	require.Equal(t, 114, c)
	require.Equal(t, 6, v)

	c, _ = VerseAt(TotalVerses)
	require.Zero(t, c)
}
