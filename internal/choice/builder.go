package choice

import (
	"fmt"
	"math/rand"
	"sync"

	"quran-quiz-bot/internal/domain"
)

// Rand is the random source the builder draws from. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// LockedRand is a Rand safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// Builder assembles choice sets. It has no state besides its random source.
type Builder struct {
	rnd Rand
}

func NewBuilder(rnd Rand) *Builder {
	return &Builder{rnd: rnd}
}

// Shuffle returns a Fisher-Yates shuffled copy of values.
func Shuffle[T any](rnd Rand, values []T) []T {
	out := make([]T, len(values))
	copy(out, values)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Build returns size options: correct plus size-1 distinct distractors from pool.
func (b *Builder) Build(correct string, pool []string, size int) (domain.ChoiceSet, error) {
	if size < 1 {
		return domain.ChoiceSet{}, fmt.Errorf("choice set size %d", size)
	}
	distractors := Distractors(correct, pool)
	if len(distractors) < size-1 {
		return domain.ChoiceSet{}, fmt.Errorf("need %d distractors, have %d: %w", size-1, len(distractors), domain.ErrInsufficientCandidates)
	}

	picked := Shuffle(b.rnd, distractors)[:size-1]
	opts := make([]option, 0, size)
	for _, d := range picked {
		opts = append(opts, option{text: d})
	}
	opts = append(opts, option{text: correct, correct: true})
	return b.assemble(opts, false), nil
}

// NoneOptions configures BuildWithNone.
type NoneOptions struct {
	// Probability that the correct answer is among the options.
	Probability float64
	// AttemptsToday drives the length normalization; 0 skips it.
	AttemptsToday int
	Normalize     bool
}

// BuildWithNone builds a set whose last-resort answer is the NoneOfTheAbove
// sentinel. When the correct answer is left out the sentinel is correct.
func (b *Builder) BuildWithNone(correct string, pool []string, size int, o NoneOptions) (domain.ChoiceSet, error) {
	if size < 3 {
		return domain.ChoiceSet{}, fmt.Errorf("choice set size %d", size)
	}
	distractors := Distractors(correct, pool)
	for i, d := range distractors {
		if d == domain.NoneOfTheAbove {
			distractors = append(distractors[:i:i], distractors[i+1:]...)
			break
		}
	}
	if len(distractors) < size-1 {
		return domain.ChoiceSet{}, fmt.Errorf("need %d distractors, have %d: %w", size-1, len(distractors), domain.ErrInsufficientCandidates)
	}

	include := b.rnd.Float64() < o.Probability
	var texts []string
	if include {
		texts = append([]string{correct}, Shuffle(b.rnd, distractors)[:size-2]...)
	} else {
		texts = Shuffle(b.rnd, distractors)[:size-1]
	}
	if o.Normalize {
		texts = NormalizeLength(texts, o.AttemptsToday)
	}

	opts := make([]option, 0, size)
	seen := make(map[string]struct{}, size)
	for i, text := range texts {
		if _, dup := seen[text]; dup {
			return domain.ChoiceSet{}, fmt.Errorf("options collide after normalization: %w", domain.ErrInsufficientCandidates)
		}
		seen[text] = struct{}{}
		opts = append(opts, option{text: text, correct: include && i == 0})
	}
	opts = append(opts, option{text: domain.NoneOfTheAbove, correct: !include})

	set := b.assemble(opts, true)
	return set, nil
}

// Distractors returns the unique values of pool other than correct, in pool order.
func Distractors(correct string, pool []string) []string {
	seen := map[string]struct{}{correct: {}}
	out := make([]string, 0, len(pool))
	for _, v := range pool {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type option struct {
	text    string
	correct bool
}

func (b *Builder) assemble(opts []option, none bool) domain.ChoiceSet {
	shuffled := Shuffle(b.rnd, opts)
	set := domain.ChoiceSet{
		Options:        make([]string, len(shuffled)),
		NoneOfTheAbove: none,
	}
	for i, o := range shuffled {
		set.Options[i] = o.text
		if o.correct {
			set.CorrectIndex = i
		}
	}
	return set
}
