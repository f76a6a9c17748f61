package domain

import (
	"strconv"
	"time"
)

// QuizType identifies one quiz command and the stats row it writes to.
type QuizType string

const (
	QuizChapter      QuizType = "chapter"
	QuizAyahOrder    QuizType = "ayah-order"
	QuizMissingWords QuizType = "missing-words"
	QuizTranslation  QuizType = "translation"
)

// Tier is the difficulty tier a session was opened with.
type Tier string

const (
	TierBase     Tier = "base"
	TierAdvanced Tier = "advanced"
)

// State is the lifecycle state of a session.
type State string

const (
	StateOpen     State = "open"
	StateAnswered State = "answered"
	StateTimedOut State = "timed_out"
	StateExpired  State = "expired"
	StateErrored  State = "errored"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s != StateOpen && s != ""
}

// Outcome is the scoring branch a resolved session falls into.
type Outcome string

const (
	OutcomeCorrect  Outcome = "correct"
	OutcomeWrong    Outcome = "wrong"
	OutcomeTimeout  Outcome = "timeout"
	OutcomePractice Outcome = "practice"
	OutcomeNone     Outcome = "none"
)

// Layout tells the surface how the answer controls are presented.
type Layout string

const (
	// LayoutLettered lists the options in the message body with A..E buttons.
	LayoutLettered Layout = "lettered"
	// LayoutNamed puts the option text on the buttons.
	LayoutNamed Layout = "named"
	// LayoutSelect renders a select menu.
	LayoutSelect Layout = "select"
	// LayoutBoolean renders True/False buttons.
	LayoutBoolean Layout = "boolean"
)

// NoneOfTheAbove is the sentinel option of the translation quiz.
const NoneOfTheAbove = "None of the above"

// Verse is one verse record from the content source.
type Verse struct {
	Key        string `json:"verse_key"`
	ChapterID  int    `json:"chapter_id"`
	Number     int    `json:"verse_number"`
	Glyph      string `json:"code_v2"`
	PageNumber int    `json:"page_number"`
	JuzNumber  int    `json:"juz_number"`
}

// Chapter is one chapter record from the content source.
type Chapter struct {
	ID              int    `json:"id"`
	NameSimple      string `json:"name_simple"`
	NameArabic      string `json:"name_arabic"`
	VersesCount     int    `json:"verses_count"`
	RevelationPlace string `json:"revelation_place"`
}

// Question is the content-agnostic payload a session presents.
type Question struct {
	Prompt  string  `json:"prompt"`
	Verses  []Verse `json:"verses"`
	Chapter Chapter `json:"chapter"`
	Layout  Layout  `json:"layout"`
	// Detail is revealed once the session is over.
	Detail string `json:"detail,omitempty"`
}

// ChoiceSet is an ordered set of unique options with a tracked answer.
type ChoiceSet struct {
	Options        []string `json:"options"`
	CorrectIndex   int      `json:"correctIndex"`
	NoneOfTheAbove bool     `json:"noneOfTheAbove,omitempty"`
}

// Correct returns the correct option, or "" for an empty set.
func (c ChoiceSet) Correct() string {
	if c.CorrectIndex < 0 || c.CorrectIndex >= len(c.Options) {
		return ""
	}
	return c.Options[c.CorrectIndex]
}

// ScoringTable holds the reward and the two penalties as positive magnitudes.
type ScoringTable struct {
	Reward         int `json:"reward"`
	WrongPenalty   int `json:"wrongPenalty"`
	TimeoutPenalty int `json:"timeoutPenalty"`
}

// Session is one in-flight quiz round. It is never mutated after creation.
type Session struct {
	ID            string       `json:"id"`
	SubjectID     string       `json:"subjectId"`
	Quiz          QuizType     `json:"quiz"`
	Tier          Tier         `json:"tier"`
	Practice      bool         `json:"practice"`
	Question      Question     `json:"question"`
	CorrectAnswer string       `json:"correctAnswer"`
	Choices       ChoiceSet    `json:"choices"`
	Scoring       ScoringTable `json:"scoring"`
	CreatedAt     time.Time    `json:"createdAt"`
	Deadline      time.Time    `json:"deadline"`
	Stats         UserStats    `json:"-"`
}

// SessionParams are the inputs to NewSession.
type SessionParams struct {
	ID            string
	SubjectID     string
	Quiz          QuizType
	Tier          Tier
	Practice      bool
	Question      Question
	CorrectAnswer string
	Choices       ChoiceSet
	Scoring       ScoringTable
	TimeLimit     time.Duration
	Stats         UserStats
}

// NewSession builds a session whose deadline is fixed at now + TimeLimit.
func NewSession(p SessionParams, now time.Time) (Session, error) {
	if p.TimeLimit <= 0 {
		return Session{}, ErrInvalidTimeLimit
	}
	correct := p.CorrectAnswer
	if len(p.Choices.Options) > 0 {
		correct = p.Choices.Correct()
	}
	return Session{
		ID:            p.ID,
		SubjectID:     p.SubjectID,
		Quiz:          p.Quiz,
		Tier:          p.Tier,
		Practice:      p.Practice,
		Question:      p.Question,
		CorrectAnswer: correct,
		Choices:       p.Choices,
		Scoring:       p.Scoring,
		CreatedAt:     now,
		Deadline:      now.Add(p.TimeLimit),
		Stats:         p.Stats,
	}, nil
}

// TimeLimit is the fixed window between creation and deadline.
func (s Session) TimeLimit() time.Duration {
	return s.Deadline.Sub(s.CreatedAt)
}

// IsCorrect compares a response value with the answer. Choice sessions are
// answered by option index, the rest by value.
func (s Session) IsCorrect(value string) bool {
	if len(s.Choices.Options) > 0 {
		i, err := strconv.Atoi(value)
		return err == nil && i == s.Choices.CorrectIndex
	}
	return value == s.CorrectAnswer
}

// UserStats is the persisted progress of one user for one quiz type.
// XP is shared by every quiz type.
type UserStats struct {
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	Quiz          QuizType  `json:"quiz"`
	XP            int       `json:"xp"`
	Streak        int       `json:"streak"`
	Attempts      int       `json:"attempts"`
	AttemptsToday int       `json:"attemptsToday"`
	Corrects      int       `json:"corrects"`
	Timeouts      int       `json:"timeouts"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Level is derived from XP, one level per 100 XP.
func (s UserStats) Level() int {
	return s.XP/100 + 1
}

// ProgressDelta is the change one resolved session applies to UserStats.
type ProgressDelta struct {
	XP         int  `json:"xp"`
	Streak     int  `json:"streak"`
	Attempts   int  `json:"attempts"`
	ResetToday bool `json:"resetToday"`
	Corrects   int  `json:"corrects"`
	Timeouts   int  `json:"timeouts"`
}

// IsZero reports a delta that leaves stored stats untouched.
func (d ProgressDelta) IsZero() bool {
	return d == ProgressDelta{}
}

// Result is the terminal payload of a session.
type Result struct {
	Session  Session       `json:"session"`
	State    State         `json:"state"`
	Outcome  Outcome       `json:"outcome"`
	Selected string        `json:"selected,omitempty"`
	Delta    ProgressDelta `json:"delta"`
	Stats    UserStats     `json:"stats"`
	Saved    bool          `json:"saved"`
}

// SelectedIndex returns the chosen option index, or -1.
func (r Result) SelectedIndex() int {
	if r.Selected == "" || len(r.Session.Choices.Options) == 0 {
		return -1
	}
	i, err := strconv.Atoi(r.Selected)
	if err != nil || i < 0 || i >= len(r.Session.Choices.Options) {
		return -1
	}
	return i
}

// NoticeKind enumerates user-visible messages that are not session results.
type NoticeKind string

const (
	NoticeNotRegistered     NoticeKind = "not_registered"
	NoticeQueueConflict     NoticeKind = "queue_conflict"
	NoticeTryAgain          NoticeKind = "try_again"
	NoticeFailure           NoticeKind = "failure"
	NoticeRegistered        NoticeKind = "registered"
	NoticeAlreadyRegistered NoticeKind = "already_registered"
)

// Notice is a plain message shown in place of a question or result.
type Notice struct {
	Kind    NoticeKind
	Quiz    QuizType
	XP      int
	Penalty int
}
