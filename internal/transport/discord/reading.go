package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"quran-quiz-bot/internal/app"
	"quran-quiz-bot/internal/domain"
)

const (
	randomAyahCommand    = "random-ayah"
	chapterVersesCommand = "chapter-verses"
	quizStatsCommand     = "quiz-stats"

	optionChapter = "chapter"
	optionPage    = "page"
	optionPerPage = "per_page"
	optionAudio   = "audio"
	optionUser    = "user"

	chapterIDPrefix = "chapter"

	colorReading = 0x2E8B57

	// chapter pages stop adding verses past this many description runes
	maxPageDescription = 3500
)

// readingCommands are the commands that show content or stats without a quiz.
func readingCommands() []*discordgo.ApplicationCommand {
	chapterMin := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:        randomAyahCommand,
			Description: "Get a random verse from the Quran",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionChapter,
					Description: "Pick from a specific chapter (1-114)",
					MinValue:    &chapterMin,
					MaxValue:    114,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        optionAudio,
					Description: "Include a recitation link",
				},
			},
		},
		{
			Name:        chapterVersesCommand,
			Description: "Read the verses of a chapter with translations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionChapter,
					Description: "Chapter number (1-114)",
					Required:    true,
					MinValue:    &chapterMin,
					MaxValue:    114,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionPage,
					Description: "Page number",
					MinValue:    &chapterMin,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optionPerPage,
					Description: "Verses per page (1-10)",
					MinValue:    &chapterMin,
					MaxValue:    app.MaxVersesPerPage,
				},
			},
		},
		{
			Name:        quizStatsCommand,
			Description: "View quiz statistics and performance",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        optionUser,
				Description: "View another user's statistics",
			}},
		},
	}
}

func intOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue())
		}
	}
	return 0
}

func boolOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range options {
		if opt.Name == name {
			return opt.BoolValue()
		}
	}
	return false
}

// handleReading serves the reading commands. It reports whether name was one.
func (b *Bot) handleReading(ctx context.Context, name string, i *discordgo.Interaction, user *discordgo.User, surface *interactionSurface) bool {
	data := i.ApplicationCommandData()
	var err error
	switch name {
	case randomAyahCommand:
		err = b.showRandomAyah(ctx, surface, intOption(data.Options, optionChapter), boolOption(data.Options, optionAudio))
	case chapterVersesCommand:
		var page domain.ChapterPage
		page, err = b.service.ChapterPage(ctx, intOption(data.Options, optionChapter), intOption(data.Options, optionPage), intOption(data.Options, optionPerPage))
		if err == nil {
			err = surface.edit(ctx, &discordgo.WebhookEdit{
				Embeds:     ptr([]*discordgo.MessageEmbed{chapterPageEmbed(page)}),
				Components: ptr(chapterComponents(page)),
			})
		}
	case quizStatsCommand:
		err = b.showStats(ctx, surface, data, user)
	default:
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "discord: reading command failed",
			"command", name,
			"user", user.ID,
			"error", err,
		)
		_ = surface.edit(ctx, &discordgo.WebhookEdit{
			Embeds: ptr([]*discordgo.MessageEmbed{readingErrorEmbed(name, err)}),
		})
	}
	return true
}

func (b *Bot) showRandomAyah(ctx context.Context, surface *interactionSurface, chapterID int, audio bool) error {
	card, err := b.service.RandomAyah(ctx, chapterID)
	if err != nil {
		return err
	}
	edit := &discordgo.WebhookEdit{}
	img, err := surface.image([]domain.Verse{card.Verse})
	if err != nil {
		slog.WarnContext(ctx, "discord: render verse failed, sending text only", "verse", card.Verse.Key, "error", err)
		img = nil
	}
	if img != nil {
		edit.Files = []*discordgo.File{{Name: imageName, ContentType: "image/png", Reader: bytes.NewReader(img)}}
	}
	edit.Embeds = ptr([]*discordgo.MessageEmbed{verseCardEmbed(card, img != nil, audio)})
	return surface.edit(ctx, edit)
}

func (b *Bot) showStats(ctx context.Context, surface *interactionSurface, data discordgo.ApplicationCommandInteractionData, user *discordgo.User) error {
	targetID, name := user.ID, user.Username
	for _, opt := range data.Options {
		if opt.Name != optionUser {
			continue
		}
		if id, ok := opt.Value.(string); ok && id != "" {
			targetID, name = id, id
			if data.Resolved != nil && data.Resolved.Users[id] != nil {
				name = data.Resolved.Users[id].Username
			}
		}
	}
	own := targetID == user.ID

	report, err := b.service.Stats(ctx, targetID)
	if errors.Is(err, domain.ErrNotRegistered) {
		return surface.edit(ctx, &discordgo.WebhookEdit{
			Embeds: ptr([]*discordgo.MessageEmbed{unregisteredStatsEmbed(name, own)}),
		})
	}
	if err != nil {
		return err
	}
	return surface.edit(ctx, &discordgo.WebhookEdit{
		Embeds: ptr([]*discordgo.MessageEmbed{statsEmbed(report, name, own)}),
	})
}

// handleChapterPage turns the message to another chapter page.
func (b *Bot) handleChapterPage(ctx context.Context, i *discordgo.Interaction, chapterID, page, perPage int) {
	p, err := b.service.ChapterPage(ctx, chapterID, page, perPage)
	if err != nil {
		slog.WarnContext(ctx, "discord: chapter page failed", "chapter", chapterID, "page", page, "error", err)
		b.ephemeral(ctx, i, "That page is no longer available.")
		return
	}
	err = b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{chapterPageEmbed(p)},
			Components: chapterComponents(p),
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.WarnContext(ctx, "discord: update chapter page failed", "chapter", chapterID, "error", classifyError(err))
	}
}

// chapterPageID addresses a pagination button: "chapter:<id>:<page>:<perPage>".
func chapterPageID(chapterID, page, perPage int) string {
	return fmt.Sprintf("%s:%d:%d:%d", chapterIDPrefix, chapterID, page, perPage)
}

func parseChapterPageID(id string) (chapterID, page, perPage int, ok bool) {
	rest, found := strings.CutPrefix(id, chapterIDPrefix+":")
	if !found {
		return 0, 0, 0, false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], true
}

func verseCardEmbed(card domain.VerseCard, hasImage, audio bool) *discordgo.MessageEmbed {
	v := card.Verse
	e := &discordgo.MessageEmbed{
		Title: "📖 Quran " + v.Key,
		Color: colorReading,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📚 Chapter", Value: fmt.Sprintf("%s (%d)", card.Chapter.NameSimple, card.Chapter.ID), Inline: true},
			{Name: "📍 Location", Value: fmt.Sprintf("Juz %d • Page %d", v.JuzNumber, v.PageNumber), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Verse %d of %d", v.Number, card.Chapter.VersesCount)},
	}
	if hasImage {
		e.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + imageName}
	}
	if card.Translation != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "🌍 Translation", Value: truncate(card.Translation, 1024)})
	}
	if audio {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "🔊 Audio Recitation",
			Value: fmt.Sprintf("[Listen on Quran.com](https://quran.com/%s)", v.Key),
		})
	}
	return e
}

func chapterPageEmbed(p domain.ChapterPage) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, v := range p.Verses {
		fmt.Fprintf(&b, "**%s**\n", v.Verse.Key)
		if v.Translation != "" {
			fmt.Fprintf(&b, "*%s*\n", v.Translation)
		}
		b.WriteString("\n")
		if len([]rune(b.String())) > maxPageDescription {
			b.WriteString("… (truncated to fit)\n")
			break
		}
	}
	title := "📖 " + p.Chapter.NameSimple
	if p.Chapter.NameArabic != "" {
		title += " (" + p.Chapter.NameArabic + ")"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: b.String(),
		Color:       colorReading,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d • %d total verses", p.Page, p.TotalPages, p.Chapter.VersesCount),
		},
	}
}

func chapterComponents(p domain.ChapterPage) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent
	if p.HasPrev() {
		buttons = append(buttons, discordgo.Button{
			Label:    "Previous",
			Style:    discordgo.SecondaryButton,
			CustomID: chapterPageID(p.Chapter.ID, p.Page-1, p.PerPage),
		})
	}
	if p.HasNext() {
		buttons = append(buttons, discordgo.Button{
			Label:    "Next",
			Style:    discordgo.SecondaryButton,
			CustomID: chapterPageID(p.Chapter.ID, p.Page+1, p.PerPage),
		})
	}
	if len(buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

var quizLabels = map[domain.QuizType]string{
	domain.QuizChapter:      "🧩 Chapter Quiz",
	domain.QuizAyahOrder:    "📖 Order Quiz",
	domain.QuizMissingWords: "🔍 Missing Words",
	domain.QuizTranslation:  "🌟 Translation Quiz",
}

func skillLabel(s domain.Skill) (string, int) {
	switch s {
	case domain.SkillMaster:
		return "Master 👑", 0xFFD700
	case domain.SkillExpert:
		return "Expert 🔥", 0xFF6B6B
	case domain.SkillAdvanced:
		return "Advanced ⭐", 0x4DABF7
	case domain.SkillIntermediate:
		return "Intermediate 📚", 0x9C88FF
	}
	return "Beginner 🌱", 0x95D5B2
}

func statsEmbed(r domain.StatsReport, name string, own bool) *discordgo.MessageEmbed {
	attempts, corrects, timeouts := r.Totals()
	skill, color := skillLabel(r.Skill())
	e := &discordgo.MessageEmbed{
		Title:       "📊 Quiz Statistics",
		Description: fmt.Sprintf("**%s's Quran Quiz Performance**\n*Skill Level: %s*", name, skill),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{{
			Name: "🎯 Overall Performance",
			Value: fmt.Sprintf("**Total Attempts:** %d\n**Correct Answers:** %d\n**Timeouts:** %d\n**Accuracy Rate:** %.1f%%",
				attempts, corrects, timeouts, r.Accuracy()),
		}},
	}
	for _, s := range r.Quizzes {
		value := "No attempts yet"
		if s.Attempts > 0 {
			value = fmt.Sprintf("**Attempts:** %d\n**Correct:** %d\n**Accuracy:** %.1f%%",
				s.Attempts, s.Corrects, domain.Accuracy(s.Corrects, s.Attempts))
		}
		label := quizLabels[s.Quiz]
		if label == "" {
			label = string(s.Quiz)
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: label, Value: value, Inline: true})
	}

	level := fmt.Sprintf("**Current Level:** %d\n**Total XP:** %d", r.Level(), r.XP)
	if own {
		level += fmt.Sprintf("\n**XP to Next Level:** %d", r.XPToNextLevel())
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "💫 Experience & Level", Value: level})

	if tips := statsTips(r); own && tips != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "🎓 Performance Insights", Value: tips})
	}
	return e
}

func statsTips(r domain.StatsReport) string {
	attempts, _, timeouts := r.Totals()
	if attempts == 0 {
		return ""
	}
	var tip string
	switch acc := r.Accuracy(); {
	case acc < 50:
		tip = "💡 **Tip:** Practice more to improve accuracy! Try reviewing chapter names and verse orders."
	case acc < 70:
		tip = "💡 **Tip:** You're making good progress! Focus on chapters you find challenging."
	case acc < 90:
		tip = "💡 **Tip:** Excellent work! You're becoming a Quran knowledge expert!"
	default:
		tip = "💡 **Tip:** Outstanding mastery! Consider helping others learn the Quran."
	}
	if float64(timeouts) > float64(attempts)*0.2 {
		tip += "\n⏱️ **Note:** Try to answer faster to avoid timeouts."
	}
	return tip
}

func unregisteredStatsEmbed(name string, own bool) *discordgo.MessageEmbed {
	desc := "You need to register first to view your quiz statistics!"
	if !own {
		desc = name + " is not registered yet."
	}
	return &discordgo.MessageEmbed{
		Title:       "🚫 User Not Found",
		Description: desc,
		Color:       colorWrong,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "✨ How to register?",
			Value: "Use `/register` to create your account and start tracking your quiz performance!",
		}},
	}
}

func readingErrorEmbed(command string, err error) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{Title: "❌ Something Went Wrong", Color: colorWrong}
	switch {
	case errors.Is(err, domain.ErrNotFound) && command == chapterVersesCommand:
		e.Title = "📭 No Verses Found"
		e.Description = "That chapter page does not exist."
	case command == quizStatsCommand:
		e.Title = "❌ Stats Error"
		e.Description = "Failed to load quiz statistics. Please try again later."
	default:
		e.Description = "Failed to fetch verses. Please try again later."
	}
	return e
}
