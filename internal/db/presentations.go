package db

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Giopap1991/ai-agents/internal/models"
)

func (s *Store) CreatePresentation(ctx context.Context, p *models.Presentation) error {

	content, err := json.Marshal(p.Content)
	if err != nil {
		return errors.Wrap(err, "encode slide deck")
	}

	_, err = s.Pool.Exec(ctx,
		`INSERT INTO presentations
		 (id, user_id, topic, status, content, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID,
		p.UserID,
		p.Topic,
		p.Status,
		content,
		p.CreatedAt,
		p.UpdatedAt,
	)

	return errors.Wrapf(err, "insert presentation %s", p.ID)
}

func (s *Store) CompletePresentation(
	ctx context.Context,
	id string,
	deck models.SlideDeck,
	pdfURL string,
) error {

	content, err := json.Marshal(deck)
	if err != nil {
		return errors.Wrap(err, "encode slide deck")
	}

	tag, err := s.Pool.Exec(ctx,
		`UPDATE presentations
		 SET status=$1,
		     content=$2,
		     pdf_url=$3,
		     updated_at=NOW()
		 WHERE id=$4`,
		models.PresentationCompleted,
		content,
		pdfURL,
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "complete presentation %s", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "complete presentation %s", id)
	}

	return nil
}

func (s *Store) FailPresentation(ctx context.Context, id string) error {

	_, err := s.Pool.Exec(ctx,
		`UPDATE presentations
		 SET status=$1,
		     updated_at=NOW()
		 WHERE id=$2 AND status=$3`,
		models.PresentationFailed,
		id,
		models.PresentationGenerating,
	)

	return errors.Wrapf(err, "fail presentation %s", id)
}
