package domain

// VerseCard is one verse shown outside a quiz, with its chapter and
// translation.
type VerseCard struct {
	Verse       Verse   `json:"verse"`
	Chapter     Chapter `json:"chapter"`
	Translation string  `json:"translation"`
}

// ChapterPage is one page of a chapter's verses. Page is 1-based.
type ChapterPage struct {
	Chapter    Chapter     `json:"chapter"`
	Verses     []VerseCard `json:"verses"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalPages int         `json:"totalPages"`
}

// HasPrev reports whether a page precedes this one.
func (p ChapterPage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a page follows this one.
func (p ChapterPage) HasNext() bool { return p.Page < p.TotalPages }

// Skill ranks a user by attempts and accuracy across every quiz.
type Skill string

const (
	SkillBeginner     Skill = "beginner"
	SkillIntermediate Skill = "intermediate"
	SkillAdvanced     Skill = "advanced"
	SkillExpert       Skill = "expert"
	SkillMaster       Skill = "master"
)

// StatsReport is a user's progress across every quiz type.
type StatsReport struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	XP       int         `json:"xp"`
	Quizzes  []UserStats `json:"quizzes"`
}

func (r StatsReport) Level() int {
	return r.XP/100 + 1
}

// XPToNextLevel is the XP still missing for the next level.
func (r StatsReport) XPToNextLevel() int {
	return r.Level()*100 - r.XP
}

// Totals sums attempts, correct answers and timeouts over all quiz types.
func (r StatsReport) Totals() (attempts, corrects, timeouts int) {
	for _, s := range r.Quizzes {
		attempts += s.Attempts
		corrects += s.Corrects
		timeouts += s.Timeouts
	}
	return attempts, corrects, timeouts
}

// Accuracy is the overall share of correct answers in percent.
func (r StatsReport) Accuracy() float64 {
	attempts, corrects, _ := r.Totals()
	return Accuracy(corrects, attempts)
}

func (r StatsReport) Skill() Skill {
	attempts, _, _ := r.Totals()
	acc := r.Accuracy()
	switch {
	case attempts >= 50 && acc >= 80:
		return SkillMaster
	case attempts >= 30 && acc >= 70:
		return SkillExpert
	case attempts >= 20 && acc >= 60:
		return SkillAdvanced
	case attempts >= 10 && acc >= 50:
		return SkillIntermediate
	}
	return SkillBeginner
}

// Accuracy returns corrects/attempts in percent, 0 without attempts.
func Accuracy(corrects, attempts int) float64 {
	if attempts <= 0 {
		return 0
	}
	return float64(corrects) / float64(attempts) * 100
}
