package app

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/domain"
)

func TestRemoveWords(t *testing.T) {
	text := "one two three four five six seven eight"
	for seed := int64(0); seed < 100; seed++ {
		out, n := RemoveWords(rand.New(rand.NewSource(seed)), text, 4)
		require.GreaterOrEqual(t, n, 0)
		require.LessOrEqual(t, n, 4)
		require.Equal(t, n, strings.Count(out, missingPlaceholder))
		require.Len(t, strings.Fields(out), 8)
	}

	out, n := RemoveWords(rand.New(rand.NewSource(1)), "", 4)
	require.Empty(t, out)
	require.Zero(t, n)
}

func TestCleanTranslation(t *testing.T) {
	raw := "Guide us<sup foot_note=77>1</sup>  to the\n straight path foot_note=12"
	require.Equal(t, "Guide us1 to the straight path", CleanTranslation(raw))
}

func TestTrimVerseMarker(t *testing.T) {
	require.Equal(t, "ﭑ ﭒ ﭓ", TrimVerseMarker(" ﭑ ﭒ ﭓ ﭔ "))
	require.Equal(t, "", TrimVerseMarker("ﭔ"))
}

func TestDefinitions(t *testing.T) {
	defs := definitions()
	require.Len(t, defs, 4)

	gated := 0
	for quiz, def := range defs {
		base, ok := def.tiers[domain.TierBase]
		require.True(t, ok, "%s has no base tier", quiz)
		require.Positive(t, base.timeLimit(0))
		require.Positive(t, base.scoring.Reward)
		if def.gated {
			gated++
			require.False(t, def.practice)
		}
	}
	require.Equal(t, 1, gated)

	tr := defs[domain.QuizTranslation].tiers[domain.TierBase]
	require.Equal(t, 50*time.Second, tr.timeLimit(10))
}
