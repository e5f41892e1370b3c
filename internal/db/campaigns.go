package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Giopap1991/ai-agents/internal/models"
)

// CreateCampaign inserts the campaign and all of its PENDING recipients in
// one transaction.
func (s *Store) CreateCampaign(ctx context.Context, c *models.Campaign) error {

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin campaign tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO campaigns
		 (id, user_id, subject, body, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID,
		c.UserID,
		c.Subject,
		c.Body,
		c.Status,
		c.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert campaign %s", c.ID)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"campaign_recipients"},
		[]string{"id", "campaign_id", "email", "status"},
		pgx.CopyFromSlice(len(c.Recipients), func(i int) ([]any, error) {
			r := c.Recipients[i]
			return []any{r.ID, c.ID, r.Email, r.Status}, nil
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "copy recipients for campaign %s", c.ID)
	}

	return errors.Wrap(tx.Commit(ctx), "commit campaign tx")
}

// MarkRecipientSent and MarkRecipientFailed only move PENDING rows, so a
// recipient reaches a terminal status once.
func (s *Store) MarkRecipientSent(ctx context.Context, id string, at time.Time) error {

	_, err := s.Pool.Exec(ctx,
		`UPDATE campaign_recipients
		 SET status=$1,
		     sent_at=$2
		 WHERE id=$3 AND status=$4`,
		models.RecipientSent,
		at,
		id,
		models.RecipientPending,
	)

	return errors.Wrapf(err, "mark recipient %s sent", id)
}

func (s *Store) MarkRecipientFailed(ctx context.Context, id string, errMsg string) error {

	_, err := s.Pool.Exec(ctx,
		`UPDATE campaign_recipients
		 SET status=$1,
		     error_msg=$2
		 WHERE id=$3 AND status=$4`,
		models.RecipientFailed,
		errMsg,
		id,
		models.RecipientPending,
	)

	return errors.Wrapf(err, "mark recipient %s failed", id)
}

func (s *Store) FinalizeCampaign(
	ctx context.Context,
	id string,
	status models.CampaignStatus,
	sentAt time.Time,
) error {

	tag, err := s.Pool.Exec(ctx,
		`UPDATE campaigns
		 SET status=$1,
		     sent_at=$2
		 WHERE id=$3 AND status=$4`,
		status,
		sentAt,
		id,
		models.CampaignSending,
	)
	if err != nil {
		return errors.Wrapf(err, "finalize campaign %s", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "finalize campaign %s", id)
	}

	return nil
}
