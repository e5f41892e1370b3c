// Package campaign creates campaigns, drives the batch send and finalizes
// the aggregate status.
package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/events"
	"github.com/Giopap1991/ai-agents/internal/metrics"
	"github.com/Giopap1991/ai-agents/internal/models"
	"github.com/Giopap1991/ai-agents/internal/worker"
)

// Store is the persistence the service needs. CreateCampaign must write the
// campaign and all of its recipients atomically.
type Store interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	FinalizeCampaign(ctx context.Context, id string, status models.CampaignStatus, sentAt time.Time) error
}

// Sender runs the per-recipient sends for one campaign.
type Sender interface {
	SendBatch(ctx context.Context, recipients []models.Recipient, subject, htmlBody string) []worker.Outcome
}

type Request struct {
	UserID     string
	Subject    string
	Body       string
	Recipients []string
}

type Result struct {
	CampaignID      string `json:"campaignId"`
	TotalRecipients int    `json:"totalRecipients"`
	FailedCount     int    `json:"failedCount"`
}

type Service struct {
	Store  Store
	Sender Sender
	Events events.Publisher
	Log    *zap.Logger

	now func() time.Time
}

// Validate rejects a request with an empty subject, body or recipient list.
// Blank addresses do not count as recipients.
func Validate(req Request) error {
	if strings.TrimSpace(req.Subject) == "" ||
		strings.TrimSpace(req.Body) == "" ||
		len(cleanRecipients(req.Recipients)) == 0 {
		return apperr.Invalid("Subject, body, and recipients are required")
	}
	return nil
}

// cleanRecipients trims every address and drops the blank ones.
func cleanRecipients(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Send validates, persists the campaign with PENDING recipients, sends to
// every recipient and finalizes the campaign once. Recipient failures are
// reported through FailedCount, never as an error.
func (s *Service) Send(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	addrs := cleanRecipients(req.Recipients)

	now := s.clock()
	c := &models.Campaign{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Subject:    req.Subject,
		Body:       req.Body,
		Status:     models.CampaignSending,
		Recipients: make([]models.Recipient, len(addrs)),
		CreatedAt:  now,
	}
	for i, addr := range addrs {
		c.Recipients[i] = models.Recipient{
			ID:         uuid.NewString(),
			CampaignID: c.ID,
			Email:      addr,
			Status:     models.RecipientPending,
		}
	}

	if err := s.Store.CreateCampaign(ctx, c); err != nil {
		return nil, apperr.Persistence("failed to create campaign", err)
	}

	s.Log.Info("campaign created",
		zap.String("campaign_id", c.ID),
		zap.String("user_id", c.UserID),
		zap.Int("recipients", len(c.Recipients)),
	)

	// An accepted campaign always runs to completion.
	runCtx := context.WithoutCancel(ctx)

	outcomes := s.Sender.SendBatch(runCtx, c.Recipients, c.Subject, c.Body)
	failed := worker.FailedCount(outcomes)

	status := models.CampaignCompleted
	if failed == len(c.Recipients) {
		status = models.CampaignFailed
	}

	if err := s.Store.FinalizeCampaign(runCtx, c.ID, status, s.clock()); err != nil {
		return nil, apperr.Persistence("failed to finalize campaign", err)
	}

	metrics.CampaignsFinalized.WithLabelValues(string(status)).Inc()

	s.Log.Info("campaign finalized",
		zap.String("campaign_id", c.ID),
		zap.String("status", string(status)),
		zap.Int("failed", failed),
	)

	s.publish(runCtx, events.Event{
		Type:     events.CampaignFinalized,
		UserID:   c.UserID,
		EntityID: c.ID,
		Status:   string(status),
	})

	return &Result{
		CampaignID:      c.ID,
		TotalRecipients: len(c.Recipients),
		FailedCount:     failed,
	}, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.Warn("event publish failed",
			zap.String("event", string(ev.Type)),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err),
		)
	}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}
