package db

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Giopap1991/ai-agents/internal/models"
)

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tasks
		 (id, user_id, kind, prompt, result, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID,
		t.UserID,
		t.Kind,
		t.Prompt,
		nullableJSON(t.Result),
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
	)

	return errors.Wrapf(err, "insert task %s", t.ID)
}

// FinalizeTask records the terminal status and result of a task. The kind
// column is never touched.
func (s *Store) FinalizeTask(
	ctx context.Context,
	id string,
	status models.TaskStatus,
	result json.RawMessage,
) error {

	tag, err := s.Pool.Exec(ctx,
		`UPDATE tasks
		 SET status=$1,
		     result=$2,
		     updated_at=NOW()
		 WHERE id=$3`,
		status,
		nullableJSON(result),
		id,
	)
	if err != nil {
		return errors.Wrapf(err, "finalize task %s", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrNotFound, "finalize task %s", id)
	}

	return nil
}

func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
