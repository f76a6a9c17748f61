package choice_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/choice"
	"quran-quiz-bot/internal/domain"
)

// fixedRand shuffles with a seeded source but always returns the same Float64.
type fixedRand struct {
	*rand.Rand
	f float64
}

func (r fixedRand) Float64() float64 { return r.f }

func newFixed(f float64) fixedRand {
	return fixedRand{Rand: rand.New(rand.NewSource(7)), f: f}
}

func TestBuilder_Build(t *testing.T) {
	pool := []string{"Al-Fatihah", "Al-Baqarah", "Ali 'Imran", "An-Nisa", "Al-Ma'idah", "Al-An'am", "Al-Baqarah", "Yunus"}

	for seed := int64(0); seed < 200; seed++ {
		b := choice.NewBuilder(rand.New(rand.NewSource(seed)))
		set, err := b.Build("Yusuf", pool, 5)
		require.NoError(t, err)
		require.Len(t, set.Options, 5)
		require.Equal(t, "Yusuf", set.Correct())
		requireUnique(t, set.Options)
		require.Equal(t, 1, count(set.Options, "Yusuf"))
	}
}

func TestBuilder_BuildDropsCorrectFromPool(t *testing.T) {
	b := choice.NewBuilder(rand.New(rand.NewSource(1)))
	set, err := b.Build("B", []string{"A", "B", "B", "C", "D"}, 4)
	require.NoError(t, err)
	require.Equal(t, 1, count(set.Options, "B"))
	require.Equal(t, "B", set.Options[set.CorrectIndex])
}

func TestBuilder_BuildInsufficient(t *testing.T) {
	b := choice.NewBuilder(rand.New(rand.NewSource(1)))
	_, err := b.Build("A", []string{"A", "B", "B", "C"}, 5)
	require.ErrorIs(t, err, domain.ErrInsufficientCandidates)
}

func TestBuilder_CorrectPositionIsSpread(t *testing.T) {
	b := choice.NewBuilder(rand.New(rand.NewSource(42)))
	seen := make(map[int]int)
	for i := 0; i < 500; i++ {
		set, err := b.Build("x", []string{"a", "b", "c", "d", "e", "f"}, 5)
		require.NoError(t, err)
		seen[set.CorrectIndex]++
	}
	require.Len(t, seen, 5)
	for idx, n := range seen {
		require.Greater(t, n, 50, "index %d picked %d times", idx, n)
	}
}

func TestBuilder_BuildWithNone(t *testing.T) {
	pool := []string{"w1", "w2", "w3", "w4", "w5"}

	tests := map[string]struct {
		f      float64
		assert func(t *testing.T, set domain.ChoiceSet)
	}{
		"correct answer omitted makes the sentinel correct": {
			f: 0.99,
			assert: func(t *testing.T, set domain.ChoiceSet) {
				require.Equal(t, domain.NoneOfTheAbove, set.Correct())
				require.Zero(t, count(set.Options, "right"))
			},
		},
		"correct answer included next to the sentinel": {
			f: 0.1,
			assert: func(t *testing.T, set domain.ChoiceSet) {
				require.Equal(t, "right", set.Correct())
				require.Equal(t, 1, count(set.Options, "right"))
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := choice.NewBuilder(newFixed(tc.f))
			set, err := b.BuildWithNone("right", pool, 5, choice.NoneOptions{Probability: 0.7})
			require.NoError(t, err)
			require.Len(t, set.Options, 5)
			require.True(t, set.NoneOfTheAbove)
			require.Equal(t, 1, count(set.Options, domain.NoneOfTheAbove))
			requireUnique(t, set.Options)
			tc.assert(t, set)
		})
	}
}

func TestBuilder_BuildWithNoneNormalizes(t *testing.T) {
	long := strings.Repeat("a", 150)
	pool := []string{strings.Repeat("b", 160), strings.Repeat("c", 170), strings.Repeat("d", 180), strings.Repeat("e", 190)}

	b := choice.NewBuilder(newFixed(0.0))
	set, err := b.BuildWithNone(long, pool, 5, choice.NoneOptions{Probability: 0.7, AttemptsToday: 50, Normalize: true})
	require.NoError(t, err)

	correct := set.Correct()
	require.True(t, strings.HasPrefix(correct, "..."))
	require.True(t, strings.Contains(correct, "a"))
	for _, opt := range set.Options {
		if opt == domain.NoneOfTheAbove {
			continue
		}
		require.Len(t, []rune(opt), 95+6)
	}
}

func TestNormalizeLength(t *testing.T) {
	texts := []string{strings.Repeat("x", 40), strings.Repeat("y", 120), strings.Repeat("z", 200)}

	target := choice.TargetLength(texts, 50)
	require.Equal(t, 40, target)
	require.Less(t, target, 40+20)

	out := choice.NormalizeLength(texts, 50)
	require.Equal(t, texts[0], out[0])
	for _, s := range out[1:] {
		require.True(t, strings.HasPrefix(s, "..."))
		require.True(t, strings.HasSuffix(s, "..."))
		require.Len(t, []rune(s), target+6)
	}
}

func TestNormalizeLength_Defaults(t *testing.T) {
	texts := []string{strings.Repeat("x", 100)}
	// attemptsToday 0 counts as 10: 100*0.9+20
	require.Equal(t, 110, choice.TargetLength(texts, 0))
	// the factor never goes under 0.1
	require.Equal(t, 30, choice.TargetLength(texts, 500))
	require.Equal(t, 20, choice.TargetLength([]string{""}, 10))
}

func TestNormalizeLength_Runes(t *testing.T) {
	arabic := strings.Repeat("ب", 200)
	out := choice.NormalizeLength([]string{strings.Repeat("a", 40), arabic}, 50)
	require.Len(t, []rune(out[1]), 46)
}

func TestBuilder_Window(t *testing.T) {
	values := make([]string, 114)
	for i := range values {
		values[i] = fmt.Sprintf("c%d", i+1)
	}

	tests := map[string]struct {
		correct int
	}{
		"first item":  {correct: 0},
		"middle item": {correct: 57},
		"last item":   {correct: 113},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for seed := int64(0); seed < 50; seed++ {
				b := choice.NewBuilder(rand.New(rand.NewSource(seed)))
				set, err := b.Window(values, tc.correct, 25)
				require.NoError(t, err)
				require.Len(t, set.Options, 25)
				require.Equal(t, values[tc.correct], set.Correct())
				requireUnique(t, set.Options)
			}
		})
	}
}

func TestBuilder_WindowShortList(t *testing.T) {
	b := choice.NewBuilder(rand.New(rand.NewSource(3)))
	set, err := b.Window([]string{"a", "b", "c"}, 2, 25)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, set.Options)
	require.Equal(t, 2, set.CorrectIndex)

	_, err = b.Window([]string{"a"}, 4, 25)
	require.ErrorIs(t, err, domain.ErrInsufficientCandidates)
}

func TestFirstMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the first accepted value", func(t *testing.T) {
		pulls := 0
		v, err := choice.FirstMatch(ctx, 10, func(context.Context) (int, error) {
			pulls++
			return pulls, nil
		}, func(n int) bool { return n == 3 })
		require.NoError(t, err)
		require.Equal(t, 3, v)
		require.Equal(t, 3, pulls)
	})

	t.Run("gives up after the limit", func(t *testing.T) {
		pulls := 0
		_, err := choice.FirstMatch(ctx, 10, func(context.Context) (int, error) {
			pulls++
			return 0, nil
		}, func(int) bool { return false })
		require.ErrorIs(t, err, domain.ErrInsufficientCandidates)
		require.Equal(t, 10, pulls)
	})

	t.Run("source failure is reported as insufficient", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := choice.FirstMatch(ctx, 10, func(context.Context) (int, error) {
			return 0, boom
		}, func(int) bool { return true })
		require.ErrorIs(t, err, domain.ErrInsufficientCandidates)
		require.ErrorIs(t, err, boom)
	})
}

func requireUnique(t *testing.T, values []string) {
	t.Helper()
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		_, dup := seen[v]
		require.False(t, dup, "duplicate option %q", v)
		seen[v] = struct{}{}
	}
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
