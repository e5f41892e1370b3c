package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Giopap1991/ai-agents/internal/models"
)

// TimelineSnapshot reads a user's plans, campaigns and presentations inside
// one read-only repeatable-read transaction so the three lists describe the
// same moment. EMAIL and PRESENTATION tasks are read only when they did not
// complete, since a completed one is listed through its campaign or
// presentation row.
func (s *Store) TimelineSnapshot(ctx context.Context, userID string) (*models.TimelineSnapshot, error) {

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrap(err, "begin timeline tx")
	}
	defer tx.Rollback(ctx)

	snap := &models.TimelineSnapshot{}

	if snap.Tasks, err = listTasks(ctx, tx, userID); err != nil {
		return nil, err
	}
	if snap.Campaigns, err = listCampaigns(ctx, tx, userID); err != nil {
		return nil, err
	}
	if snap.Presentations, err = listPresentations(ctx, tx, userID); err != nil {
		return nil, err
	}

	return snap, errors.Wrap(tx.Commit(ctx), "commit timeline tx")
}

func listTasks(ctx context.Context, tx pgx.Tx, userID string) ([]models.Task, error) {

	rows, err := tx.Query(ctx,
		`SELECT id, user_id, kind, prompt, result, status, created_at, updated_at
		 FROM tasks
		 WHERE user_id=$1 AND (kind=$2 OR status<>$3)
		 ORDER BY created_at DESC`,
		userID,
		models.KindGeneral,
		models.TaskCompleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query tasks")
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var (
			t      models.Task
			result []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Prompt, &result, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan task")
		}
		if len(result) > 0 {
			t.Result = json.RawMessage(result)
		}
		out = append(out, t)
	}

	return out, errors.Wrap(rows.Err(), "iterate tasks")
}

func listCampaigns(ctx context.Context, tx pgx.Tx, userID string) ([]models.Campaign, error) {

	rows, err := tx.Query(ctx,
		`SELECT id, user_id, subject, body, status, created_at, sent_at
		 FROM campaigns
		 WHERE user_id=$1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query campaigns")
	}
	defer rows.Close()

	var out []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.UserID, &c.Subject, &c.Body, &c.Status, &c.CreatedAt, &c.SentAt); err != nil {
			return nil, errors.Wrap(err, "scan campaign")
		}
		out = append(out, c)
	}

	return out, errors.Wrap(rows.Err(), "iterate campaigns")
}

func listPresentations(ctx context.Context, tx pgx.Tx, userID string) ([]models.Presentation, error) {

	rows, err := tx.Query(ctx,
		`SELECT id, user_id, topic, status, content, pdf_url, created_at, updated_at
		 FROM presentations
		 WHERE user_id=$1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query presentations")
	}
	defer rows.Close()

	var out []models.Presentation
	for rows.Next() {
		var (
			p       models.Presentation
			content []byte
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Topic, &p.Status, &content, &p.PDFURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan presentation")
		}
		if len(content) > 0 {
			if err := json.Unmarshal(content, &p.Content); err != nil {
				return nil, errors.Wrapf(err, "decode content of presentation %s", p.ID)
			}
		}
		out = append(out, p)
	}

	return out, errors.Wrap(rows.Err(), "iterate presentations")
}
