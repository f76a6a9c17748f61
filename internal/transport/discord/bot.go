// Package discord connects quiz sessions to Discord slash commands and
// message components.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"quran-quiz-bot/internal/app"
	"quran-quiz-bot/internal/domain"
)

// API is the subset of *discordgo.Session used to answer interactions.
type API interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Service is what the bot needs from the quiz service.
type Service interface {
	Play(ctx context.Context, req app.PlayRequest, surface app.Surface) (*app.Handle, error)
	Register(ctx context.Context, userID, username string, surface app.Surface) error
	Command(quiz domain.QuizType) string
	QuizForCommand(name string) (domain.QuizType, bool)
	Quizzes() []app.QuizInfo
	RandomAyah(ctx context.Context, chapterID int) (domain.VerseCard, error)
	ChapterPage(ctx context.Context, chapterID, page, perPage int) (domain.ChapterPage, error)
	Stats(ctx context.Context, userID string) (domain.StatsReport, error)
}

// Dispatcher routes component responses to open sessions.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string, ev app.ResponseEvent) error
}

type BotConfig struct {
	Token    string
	AppID    string
	GuildID  string
	Service  Service
	Sessions Dispatcher
	Renderer Renderer
}

type Bot struct {
	session  *discordgo.Session
	api      API
	service  Service
	sessions Dispatcher
	renderer Renderer
	appID    string
	guildID  string
}

func NewBot(c BotConfig) (*Bot, error) {
	if c.Token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + c.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	b := newBot(s, c)
	b.session = s
	return b, nil
}

func newBot(api API, c BotConfig) *Bot {
	return &Bot{
		api:      api,
		service:  c.Service,
		sessions: c.Sessions,
		renderer: c.Renderer,
		appID:    c.AppID,
		guildID:  c.GuildID,
	}
}

// Run connects to the gateway, registers the slash commands and serves
// interactions until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	remove := b.session.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.Handle(ctx, ic.Interaction)
	})
	defer remove()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			slog.Warn("discord: close gateway failed", "error", err)
		}
	}()

	appID := b.appID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	cmds, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands(b.service.Quizzes()), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	slog.InfoContext(ctx, "discord: gateway connected", "commands", len(cmds), "guild", b.guildID)

	<-ctx.Done()
	return nil
}

// Handle serves one interaction. It blocks until the question is shown.
func (b *Bot) Handle(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	user := interactionUser(i)
	if user == nil {
		return
	}

	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "discord: defer command failed",
			"command", data.Name,
			"error", classifyError(err),
		)
		return
	}

	surface := &interactionSurface{
		api:         b.api,
		interaction: i,
		renderer:    b.renderer,
		command:     b.service.Command,
	}

	if data.Name == registerCommand {
		if err := b.service.Register(ctx, user.ID, user.Username, surface); err != nil {
			slog.ErrorContext(ctx, "discord: register failed", "user", user.ID, "error", err)
		}
		return
	}
	if b.handleReading(ctx, data.Name, i, user, surface) {
		return
	}

	quiz, ok := b.service.QuizForCommand(data.Name)
	if !ok {
		slog.WarnContext(ctx, "discord: unknown command", "command", data.Name)
		_ = surface.ShowNotice(ctx, domain.Notice{Kind: domain.NoticeFailure})
		return
	}
	if _, err := b.service.Play(ctx, playRequest(quiz, user.ID, data.Options), surface); err != nil {
		slog.InfoContext(ctx, "discord: quiz not started",
			"command", data.Name,
			"user", user.ID,
			"error", err,
		)
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	if chapterID, page, perPage, ok := parseChapterPageID(data.CustomID); ok {
		b.handleChapterPage(ctx, i, chapterID, page, perPage)
		return
	}
	sessionID, value, ok := parseCustomID(data.CustomID)
	if !ok {
		return
	}
	if value == "" && len(data.Values) > 0 {
		value = data.Values[0]
	}
	user := interactionUser(i)
	if user == nil {
		return
	}

	err := b.sessions.Dispatch(ctx, sessionID, app.ResponseEvent{
		ResponderID: user.ID,
		Value:       value,
		Ack: func(ctx context.Context) error {
			return classifyError(b.api.InteractionRespond(i, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredMessageUpdate,
			}, discordgo.WithContext(ctx)))
		},
	})
	switch {
	case errors.Is(err, domain.ErrNotSessionOwner):
		b.ephemeral(ctx, i, "This quiz belongs to someone else. Start your own!")
	case errors.Is(err, domain.ErrSessionNotFound):
		b.ephemeral(ctx, i, "This quiz has already ended.")
	case err != nil:
		slog.ErrorContext(ctx, "discord: dispatch response failed", "session", sessionID, "error", err)
	}
}

func (b *Bot) ephemeral(ctx context.Context, i *discordgo.Interaction, text string) {
	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.WarnContext(ctx, "discord: ephemeral reply failed", "error", classifyError(err))
	}
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
