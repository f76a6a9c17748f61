package choice

import "quran-quiz-bot/internal/domain"

// Window returns size consecutive values around correctIndex, kept in list
// order. The answer's offset inside the window is drawn at random before the
// window is clamped to the list, so the answer is not always in the middle.
func (b *Builder) Window(values []string, correctIndex, size int) (domain.ChoiceSet, error) {
	if correctIndex < 0 || correctIndex >= len(values) {
		return domain.ChoiceSet{}, domain.ErrInsufficientCandidates
	}
	if size >= len(values) {
		out := make([]string, len(values))
		copy(out, values)
		return domain.ChoiceSet{Options: out, CorrectIndex: correctIndex}, nil
	}

	start := correctIndex - b.rnd.Intn(size)
	start = max(0, min(start, len(values)-size))

	out := make([]string, size)
	copy(out, values[start:start+size])
	return domain.ChoiceSet{Options: out, CorrectIndex: correctIndex - start}, nil
}
