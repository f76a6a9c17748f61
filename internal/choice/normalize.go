package choice

import "math"

const (
	defaultAttemptsToday = 10
	minTarget            = 20
	targetPadding        = 20
	keepMargin           = 20
	ellipsis             = "..."
)

// NormalizeLength trims long texts to a shared length derived from the
// shortest one so that an option's length does not give it away. The target
// shrinks as the player's attempts for the day grow. Long texts keep their
// middle part, wrapped in ellipses.
func NormalizeLength(texts []string, attemptsToday int) []string {
	if len(texts) == 0 {
		return texts
	}
	target := TargetLength(texts, attemptsToday)

	out := make([]string, len(texts))
	for i, text := range texts {
		runes := []rune(text)
		if len(runes) <= target+keepMargin {
			out[i] = text
			continue
		}
		start := (len(runes) - target) / 2
		out[i] = ellipsis + string(runes[start:start+target]) + ellipsis
	}
	return out
}

// TargetLength is the rune length long texts are cut down to.
func TargetLength(texts []string, attemptsToday int) int {
	shortest := math.MaxInt
	for _, text := range texts {
		if n := len([]rune(text)); n < shortest {
			shortest = n
		}
	}
	if attemptsToday <= 0 {
		attemptsToday = defaultAttemptsToday
	}
	factor := math.Max(0.1, 1-float64(attemptsToday)*0.01)
	return max(minTarget, int(math.Floor(float64(shortest)*factor))+targetPadding)
}
