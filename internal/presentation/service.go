// Package presentation generates slide decks and renders them to PDF.
package presentation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/events"
	"github.com/Giopap1991/ai-agents/internal/llm"
	"github.com/Giopap1991/ai-agents/internal/models"
)

const outlineInstruction = `Create a presentation outline for the topic.
Respond with a JSON object of the form {"slides": [{"title": "...", "points": ["..."]}]}.
Include 5-7 slides including an introduction and conclusion.
Keep points concise and impactful.`

type Store interface {
	CreatePresentation(ctx context.Context, p *models.Presentation) error
	CompletePresentation(ctx context.Context, id string, content models.SlideDeck, pdfURL string) error
	FailPresentation(ctx context.Context, id string) error
}

// Renderer turns an HTML document into a PDF written at path.
type Renderer interface {
	RenderPDF(ctx context.Context, html string, path string) error
}

type Result struct {
	PresentationID string           `json:"presentationId"`
	PDFURL         string           `json:"pdfUrl"`
	Content        models.SlideDeck `json:"content"`
}

type Service struct {
	LLM         llm.Client
	Model       string
	Temperature float32
	Store       Store
	Renderer    Renderer
	Events      events.Publisher
	UploadDir   string
	URLPrefix   string
	Log         *zap.Logger
}

// Validate rejects an empty topic.
func Validate(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return apperr.Invalid("Topic is required")
	}
	return nil
}

// Create records a GENERATING presentation, asks the model for an outline,
// renders the deck and completes the record in one update. Any failure
// after the record exists marks it FAILED.
func (s *Service) Create(ctx context.Context, userID, topic string) (*Result, error) {
	if err := Validate(topic); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Presentation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Topic:     topic,
		Status:    models.PresentationGenerating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreatePresentation(ctx, p); err != nil {
		return nil, apperr.Persistence("failed to create presentation", err)
	}

	res, err := s.generate(ctx, p)
	if err != nil {
		s.fail(ctx, p, err)
		return nil, err
	}

	s.Log.Info("presentation completed",
		zap.String("presentation_id", p.ID),
		zap.Int("slides", len(res.Content.Slides)),
	)
	s.publish(ctx, events.Event{
		Type:     events.PresentationCompleted,
		UserID:   userID,
		EntityID: p.ID,
		Status:   string(models.PresentationCompleted),
	})

	return res, nil
}

func (s *Service) generate(ctx context.Context, p *models.Presentation) (*Result, error) {
	text, err := s.LLM.Complete(ctx, llm.Request{
		Model:       s.Model,
		Temperature: s.Temperature,
		JSON:        true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: outlineInstruction},
			{Role: llm.RoleUser, Content: p.Topic},
		},
	})
	if err != nil {
		return nil, apperr.Remote("outline generation failed", err)
	}

	deck, err := ParseOutline(text)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelOutputMalformed, "outline generation returned malformed content", err)
	}

	html, err := RenderHTML(p.Topic, deck)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to lay out slides", err)
	}

	name := fmt.Sprintf("presentation-%s.pdf", p.ID)
	if err := s.Renderer.RenderPDF(ctx, html, filepath.Join(s.UploadDir, name)); err != nil {
		return nil, apperr.Remote("pdf rendering failed", err)
	}

	pdfURL := strings.TrimRight(s.URLPrefix, "/") + "/" + name
	if err := s.Store.CompletePresentation(ctx, p.ID, deck, pdfURL); err != nil {
		return nil, apperr.Persistence("failed to complete presentation", err)
	}

	return &Result{PresentationID: p.ID, PDFURL: pdfURL, Content: deck}, nil
}

func (s *Service) fail(ctx context.Context, p *models.Presentation, cause error) {
	s.Log.Error("presentation generation failed",
		zap.String("presentation_id", p.ID),
		zap.Error(cause),
	)
	if err := s.Store.FailPresentation(context.WithoutCancel(ctx), p.ID); err != nil {
		s.Log.Error("failed to mark presentation failed",
			zap.String("presentation_id", p.ID),
			zap.Error(err),
		)
	}
	s.publish(ctx, events.Event{
		Type:     events.PresentationFailed,
		UserID:   p.UserID,
		EntityID: p.ID,
		Status:   string(models.PresentationFailed),
	})
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.Warn("event publish failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// ParseOutline decodes and checks a slide outline. A deck needs at least one
// slide and every slide needs a title.
func ParseOutline(text string) (models.SlideDeck, error) {
	var deck models.SlideDeck
	if err := llm.DecodeJSON(text, &deck); err != nil {
		return models.SlideDeck{}, err
	}
	if len(deck.Slides) == 0 {
		return models.SlideDeck{}, fmt.Errorf("%w: no slides", llm.ErrMalformedOutput)
	}
	for i, sl := range deck.Slides {
		if strings.TrimSpace(sl.Title) == "" {
			return models.SlideDeck{}, fmt.Errorf("%w: slide %d has no title", llm.ErrMalformedOutput, i+1)
		}
		if deck.Slides[i].Points == nil {
			deck.Slides[i].Points = []string{}
		}
	}
	return deck, nil
}
