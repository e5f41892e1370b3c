// Package timeline merges plans, campaigns and presentations into one
// newest-first list.
package timeline

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/Giopap1991/ai-agents/internal/apperr"
	"github.com/Giopap1991/ai-agents/internal/models"
)

// Source reads all three record kinds for a user from one snapshot.
type Source interface {
	TimelineSnapshot(ctx context.Context, userID string) (*models.TimelineSnapshot, error)
}

type Entry struct {
	ID        string          `json:"id"`
	Kind      models.TaskKind `json:"type"`
	Prompt    string          `json:"prompt"`
	Response  string          `json:"response"`
	CreatedAt time.Time       `json:"createdAt"`
	Status    string          `json:"status"`
}

type Merger struct {
	Source Source
}

func (m *Merger) List(ctx context.Context, userID string) ([]Entry, error) {
	snap, err := m.Source.TimelineSnapshot(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("failed to load tasks", err)
	}
	return Merge(snap), nil
}

// Merge normalizes every record and sorts by creation time, newest first.
// Records with equal timestamps keep source order: plans, campaigns,
// presentations.
func Merge(snap *models.TimelineSnapshot) []Entry {
	out := make([]Entry, 0, len(snap.Tasks)+len(snap.Campaigns)+len(snap.Presentations))

	for _, t := range snap.Tasks {
		out = append(out, Entry{
			ID:        t.ID,
			Kind:      t.Kind,
			Prompt:    t.Prompt,
			Response:  string(t.Result),
			CreatedAt: t.CreatedAt,
			Status:    string(t.Status),
		})
	}

	for _, c := range snap.Campaigns {
		out = append(out, Entry{
			ID:     c.ID,
			Kind:   models.KindEmail,
			Prompt: "Email Campaign: " + c.Subject,
			Response: mustJSON(struct {
				CampaignID string                `json:"campaignId"`
				Status     models.CampaignStatus `json:"status"`
			}{c.ID, c.Status}),
			CreatedAt: c.CreatedAt,
			Status:    string(c.Status),
		})
	}

	for _, p := range snap.Presentations {
		out = append(out, Entry{
			ID:     p.ID,
			Kind:   models.KindPresentation,
			Prompt: "Presentation: " + p.Topic,
			Response: mustJSON(struct {
				PresentationID string                    `json:"presentationId"`
				Status         models.PresentationStatus `json:"status"`
				PDFURL         *string                   `json:"pdfUrl"`
			}{p.ID, p.Status, p.PDFURL}),
			CreatedAt: p.CreatedAt,
			Status:    string(p.Status),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// mustJSON encodes values built from plain strings, which cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
