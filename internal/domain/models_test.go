package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("deadline is fixed at creation", func(t *testing.T) {
		s, err := NewSession(SessionParams{
			SubjectID:     "u1",
			CorrectAnswer: "true",
			TimeLimit:     45 * time.Second,
		}, now)
		require.NoError(t, err)
		require.Equal(t, now.Add(45*time.Second), s.Deadline)
		require.Equal(t, 45*time.Second, s.TimeLimit())
	})

	t.Run("rejects non-positive time limit", func(t *testing.T) {
		_, err := NewSession(SessionParams{SubjectID: "u1"}, now)
		require.ErrorIs(t, err, ErrInvalidTimeLimit)
	})

	t.Run("choice sessions take the answer from the set", func(t *testing.T) {
		s, err := NewSession(SessionParams{
			Choices:   ChoiceSet{Options: []string{"A", "B", "C"}, CorrectIndex: 1},
			TimeLimit: time.Second,
		}, now)
		require.NoError(t, err)
		require.Equal(t, "B", s.CorrectAnswer)
		require.True(t, s.IsCorrect("1"))
		require.False(t, s.IsCorrect("2"))
		require.False(t, s.IsCorrect("B"))
	})

	t.Run("value sessions compare values", func(t *testing.T) {
		s, err := NewSession(SessionParams{CorrectAnswer: "false", TimeLimit: time.Second}, now)
		require.NoError(t, err)
		require.True(t, s.IsCorrect("false"))
		require.False(t, s.IsCorrect("true"))
	})
}

func TestLevel(t *testing.T) {
	require.Equal(t, 1, UserStats{XP: 0}.Level())
	require.Equal(t, 1, UserStats{XP: 99}.Level())
	require.Equal(t, 2, UserStats{XP: 100}.Level())
	require.Equal(t, 13, UserStats{XP: 1250}.Level())
}

func TestHandshakeError(t *testing.T) {
	expired := &HandshakeError{Code: CodeUnknownInteraction}
	require.True(t, expired.Expired())
	require.False(t, expired.AlreadyAcknowledged())

	acked := &HandshakeError{Code: CodeAlreadyAcknowledged}
	require.True(t, acked.AlreadyAcknowledged())
	require.False(t, acked.Expired())
}
