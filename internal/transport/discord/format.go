package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"quran-quiz-bot/internal/domain"
)

const (
	customIDPrefix = "quiz"
	imageName      = "verse.png"

	colorQuestion = 0x5865F2
	colorCorrect  = 0x57F287
	colorWrong    = 0xED4245
	colorNeutral  = 0xFEE75C

	maxButtonLabel = 80
	maxSelectLabel = 100
)

var letters = []string{"A", "B", "C", "D", "E"}

// customID addresses a component at one session. An empty value is used by
// select menus, whose value arrives separately.
func customID(sessionID, value string) string {
	if value == "" {
		return customIDPrefix + ":" + sessionID
	}
	return customIDPrefix + ":" + sessionID + ":" + value
}

// parseCustomID splits a component ID into its session and value.
func parseCustomID(id string) (sessionID, value string, ok bool) {
	rest, found := strings.CutPrefix(id, customIDPrefix+":")
	if !found || rest == "" {
		return "", "", false
	}
	sessionID, value, _ = strings.Cut(rest, ":")
	return sessionID, value, sessionID != ""
}

// classifyError turns platform REST failures into handshake errors the
// controller understands. Other errors pass through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case domain.CodeUnknownInteraction, domain.CodeAlreadyAcknowledged:
			return &domain.HandshakeError{Code: rest.Message.Code, Err: err}
		}
	}
	return err
}

func questionEmbed(s domain.Session, hasImage bool) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       title(s.Quiz),
		Description: s.Question.Prompt,
		Color:       colorQuestion,
		Timestamp:   s.Deadline.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Answer within %d seconds", int(s.TimeLimit().Seconds())),
		},
	}
	if s.Question.Layout == domain.LayoutLettered {
		var b strings.Builder
		b.WriteString(s.Question.Prompt)
		b.WriteString("\n")
		for i, opt := range s.Choices.Options {
			fmt.Fprintf(&b, "\n**%s.** %s", letters[i], opt)
		}
		e.Description = b.String()
	}
	if hasImage {
		e.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + imageName}
	}

	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
		Name:  "🏆 Rewards",
		Value: rewards(s),
	})
	return e
}

func rewards(s domain.Session) string {
	if s.Practice {
		return "Practice round, XP is not affected."
	}
	return fmt.Sprintf("✅ Correct: +%d XP\n❌ Wrong: -%d XP\n⏰ Timeout: -%d XP",
		s.Scoring.Reward, s.Scoring.WrongPenalty, s.Scoring.TimeoutPenalty)
}

func title(q domain.QuizType) string {
	switch q {
	case domain.QuizChapter:
		return "🧩 Quran Quiz Challenge"
	case domain.QuizAyahOrder:
		return "🔢 Ayah Order Quiz"
	case domain.QuizMissingWords:
		return "🔍 Missing Words Quiz"
	case domain.QuizTranslation:
		return "🌍 Translation Quiz"
	}
	return "Quiz"
}

func questionComponents(s domain.Session) []discordgo.MessageComponent {
	var controls []discordgo.MessageComponent
	switch s.Question.Layout {
	case domain.LayoutBoolean:
		controls = []discordgo.MessageComponent{
			discordgo.Button{Label: "True", Style: discordgo.SuccessButton, CustomID: customID(s.ID, "true")},
			discordgo.Button{Label: "False", Style: discordgo.DangerButton, CustomID: customID(s.ID, "false")},
		}
	case domain.LayoutSelect:
		options := make([]discordgo.SelectMenuOption, len(s.Choices.Options))
		for i, opt := range s.Choices.Options {
			options[i] = discordgo.SelectMenuOption{Label: truncate(opt, maxSelectLabel), Value: strconv.Itoa(i)}
		}
		controls = []discordgo.MessageComponent{discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customID(s.ID, ""),
			Placeholder: "Choose an answer",
			Options:     options,
		}}
	default:
		for i, opt := range s.Choices.Options {
			label := letters[i]
			if s.Question.Layout == domain.LayoutNamed {
				label = truncate(opt, maxButtonLabel)
			}
			controls = append(controls, discordgo.Button{
				Label:    label,
				Style:    discordgo.PrimaryButton,
				CustomID: customID(s.ID, strconv.Itoa(i)),
			})
		}
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: controls}}
}

func resultEmbed(r domain.Result, hasImage bool) *discordgo.MessageEmbed {
	s := r.Session
	e := &discordgo.MessageEmbed{Title: resultTitle(r), Color: resultColor(r)}
	if hasImage {
		e.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + imageName}
	}

	switch r.State {
	case domain.StateExpired:
		e.Description = "This quiz is no longer available."
		return e
	case domain.StateErrored:
		e.Description = "Something went wrong while finishing this quiz. Please try again."
		return e
	}

	e.Description = fmt.Sprintf("The answer was **%s**.", answerText(s))
	if s.Question.Detail != "" && s.Quiz != domain.QuizTranslation {
		e.Description += "\n" + s.Question.Detail
	}

	if len(s.Choices.Options) > 0 && r.Outcome != domain.OutcomeCorrect {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "📝 Choices", Value: choicesList(r)})
	}
	c := s.Question.Chapter
	if c.ID != 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name: "📖 Chapter Details",
			Value: fmt.Sprintf("**%s** (%s)\nChapter %d • %d verses\nRevealed in %s",
				c.NameArabic, c.NameSimple, c.ID, c.VersesCount, c.RevelationPlace),
		})
	}
	if loc := locations(s.Question.Verses); loc != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "📍 Verse Location", Value: loc})
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "💫 XP Update", Value: xpLine(r)})
	if r.Stats.Streak > 1 && r.Outcome == domain.OutcomeCorrect {
		e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("🔥 %d correct in a row", r.Stats.Streak)}
	}
	return e
}

func resultTitle(r domain.Result) string {
	t := "❌ Incorrect!"
	switch {
	case r.State == domain.StateExpired:
		return "⌛ Quiz Expired"
	case r.State == domain.StateErrored:
		return "❌ Quiz Error"
	case r.Outcome == domain.OutcomeTimeout:
		t = "⏰ Time's Up!"
	case r.Outcome == domain.OutcomeCorrect:
		t = "🎉 Correct!"
	}
	if r.Session.Practice {
		t += " (practice)"
	}
	return t
}

func resultColor(r domain.Result) int {
	switch {
	case r.State == domain.StateErrored:
		return colorWrong
	case r.Outcome == domain.OutcomeCorrect:
		return colorCorrect
	case r.Outcome == domain.OutcomeTimeout, r.State == domain.StateExpired:
		return colorNeutral
	}
	return colorWrong
}

func answerText(s domain.Session) string {
	if s.Quiz == domain.QuizAyahOrder {
		if s.CorrectAnswer == "true" {
			return "True"
		}
		return "False"
	}
	return s.CorrectAnswer
}

// choicesList marks the correct option and, when different, the selected one.
// Select menus only list those two.
func choicesList(r domain.Result) string {
	selected := r.SelectedIndex()
	var b strings.Builder
	for i, opt := range r.Session.Choices.Options {
		mark := "▫️"
		switch {
		case i == r.Session.Choices.CorrectIndex:
			mark = "✅"
		case i == selected:
			mark = "❌"
		case r.Session.Question.Layout == domain.LayoutSelect:
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		label := opt
		if i < len(letters) && r.Session.Question.Layout == domain.LayoutLettered {
			label = letters[i] + ". " + opt
		}
		fmt.Fprintf(&b, "%s %s", mark, truncate(label, 200))
	}
	return b.String()
}

func locations(verses []domain.Verse) string {
	lines := make([]string, 0, len(verses))
	for _, v := range verses {
		if v.Key == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s • Page %d • Juz %d", v.Key, v.PageNumber, v.JuzNumber))
	}
	return strings.Join(lines, "\n")
}

func xpLine(r domain.Result) string {
	switch {
	case r.Session.Practice:
		return "Practice round, XP unchanged."
	case !r.Saved:
		return "⚠️ Your progress could not be saved this time."
	}
	sign := "+"
	if r.Delta.XP < 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%d XP • Total %d XP • Level %d", sign, r.Delta.XP, r.Stats.XP, r.Stats.Level())
}

func noticeEmbed(n domain.Notice, command string) *discordgo.MessageEmbed {
	switch n.Kind {
	case domain.NoticeNotRegistered:
		return &discordgo.MessageEmbed{
			Title:       "🚫 Registration Required",
			Description: "You need to register before playing. Use `/register` to create your profile.",
			Color:       colorWrong,
		}
	case domain.NoticeQueueConflict:
		return &discordgo.MessageEmbed{
			Title: "⏳ Quiz Already Running",
			Description: fmt.Sprintf("You already have a `/%s` quiz open. Starting another one cost you %d XP; you now have %d XP.",
				command, n.Penalty, n.XP),
			Color: colorNeutral,
		}
	case domain.NoticeTryAgain:
		return &discordgo.MessageEmbed{
			Title:       "❌ Quiz Error",
			Description: "Failed to load a quiz question. Please try again.",
			Color:       colorWrong,
		}
	case domain.NoticeRegistered:
		return &discordgo.MessageEmbed{
			Title:       "✅ Registered",
			Description: "Your profile is ready. Start with `/quran-quiz`!",
			Color:       colorCorrect,
		}
	case domain.NoticeAlreadyRegistered:
		return &discordgo.MessageEmbed{
			Title:       "ℹ️ Already Registered",
			Description: fmt.Sprintf("You are already registered with %d XP.", n.XP),
			Color:       colorQuestion,
		}
	}
	return &discordgo.MessageEmbed{
		Title:       "❌ Something Went Wrong",
		Description: "Please try again later.",
		Color:       colorWrong,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
