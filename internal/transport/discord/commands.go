package discord

import (
	"github.com/bwmarrin/discordgo"

	"quran-quiz-bot/internal/app"
	"quran-quiz-bot/internal/domain"
)

const (
	registerCommand = "register"
	optionTier      = "tier"
	optionPractice  = "practice"
)

var descriptions = map[domain.QuizType]string{
	domain.QuizChapter:      "Guess which chapter a verse is from",
	domain.QuizAyahOrder:    "Decide whether one verse comes before another",
	domain.QuizMissingWords: "Count the words missing from a verse",
	domain.QuizTranslation:  "Pick the translation that matches a verse",
}

// Commands builds the slash command definitions for the given quizzes, the
// reading commands and the register command.
func Commands(quizzes []app.QuizInfo) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(quizzes)+4)
	for _, q := range quizzes {
		cmd := &discordgo.ApplicationCommand{
			Name:        q.Command,
			Description: descriptions[q.Quiz],
		}
		if cmd.Description == "" {
			cmd.Description = "Start a quiz"
		}
		if len(q.Tiers) > 1 {
			choices := make([]*discordgo.ApplicationCommandOptionChoice, len(q.Tiers))
			for i, t := range q.Tiers {
				choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(t), Value: string(t)}
			}
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optionTier,
				Description: "Difficulty",
				Choices:     choices,
			})
		}
		if q.Practice {
			cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        optionPractice,
				Description: "Play without affecting your XP",
			})
		}
		out = append(out, cmd)
	}
	out = append(out, readingCommands()...)
	return append(out, &discordgo.ApplicationCommand{
		Name:        registerCommand,
		Description: "Create your quiz profile",
	})
}

// playRequest reads the command options of a quiz invocation.
func playRequest(quiz domain.QuizType, userID string, options []*discordgo.ApplicationCommandInteractionDataOption) app.PlayRequest {
	req := app.PlayRequest{Quiz: quiz, Tier: domain.TierBase, SubjectID: userID}
	for _, opt := range options {
		switch opt.Name {
		case optionTier:
			if t := domain.Tier(opt.StringValue()); t != "" {
				req.Tier = t
			}
		case optionPractice:
			req.Practice = opt.BoolValue()
		}
	}
	return req
}
