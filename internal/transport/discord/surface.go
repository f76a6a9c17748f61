package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/render"
)

// Renderer draws verse images. *render.Renderer satisfies it.
type Renderer interface {
	Render(glyph string, page int) ([]byte, error)
	RenderStacked(blocks ...render.Block) ([]byte, error)
}

// interactionSurface edits the deferred response of one command interaction.
type interactionSurface struct {
	api         API
	interaction *discordgo.Interaction
	renderer    Renderer
	command     func(domain.QuizType) string

	mu       sync.Mutex
	hasImage bool
}

func (s *interactionSurface) ShowQuestion(ctx context.Context, session domain.Session) error {
	edit := &discordgo.WebhookEdit{
		Components: ptr(questionComponents(session)),
	}
	img, err := s.image(session.Question.Verses)
	if err != nil {
		slog.WarnContext(ctx, "discord: render verse failed, sending text only",
			"session", session.ID,
			"error", err,
		)
		img = nil
	}
	if img != nil {
		edit.Files = []*discordgo.File{{Name: imageName, ContentType: "image/png", Reader: bytes.NewReader(img)}}
	}
	s.mu.Lock()
	s.hasImage = img != nil
	s.mu.Unlock()
	edit.Embeds = ptr([]*discordgo.MessageEmbed{questionEmbed(session, img != nil)})

	return s.edit(ctx, edit)
}

func (s *interactionSurface) ShowResult(ctx context.Context, r domain.Result) error {
	s.mu.Lock()
	hasImage := s.hasImage
	s.mu.Unlock()
	return s.edit(ctx, &discordgo.WebhookEdit{
		Embeds:     ptr([]*discordgo.MessageEmbed{resultEmbed(r, hasImage)}),
		Components: ptr([]discordgo.MessageComponent{}),
	})
}

func (s *interactionSurface) ShowNotice(ctx context.Context, n domain.Notice) error {
	command := ""
	if n.Quiz != "" && s.command != nil {
		command = s.command(n.Quiz)
	}
	return s.edit(ctx, &discordgo.WebhookEdit{
		Embeds:     ptr([]*discordgo.MessageEmbed{noticeEmbed(n, command)}),
		Components: ptr([]discordgo.MessageComponent{}),
	})
}

func (s *interactionSurface) edit(ctx context.Context, edit *discordgo.WebhookEdit) error {
	if _, err := s.api.InteractionResponseEdit(s.interaction, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit interaction response: %w", classifyError(err))
	}
	return nil
}

func (s *interactionSurface) image(verses []domain.Verse) ([]byte, error) {
	if s.renderer == nil || len(verses) == 0 {
		return nil, nil
	}
	if len(verses) == 1 {
		return s.renderer.Render(verses[0].Glyph, verses[0].PageNumber)
	}
	labels := []string{"First verse", "Second verse"}
	blocks := make([]render.Block, len(verses))
	for i, v := range verses {
		label := fmt.Sprintf("Verse %d", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		blocks[i] = render.Block{Label: label, Glyph: v.Glyph, Page: v.PageNumber}
	}
	return s.renderer.RenderStacked(blocks...)
}

func ptr[T any](v T) *T {
	return &v
}
