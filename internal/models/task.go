package models

import (
	"encoding/json"
	"time"
)

type TaskKind string

const (
	KindGeneral      TaskKind = "GENERAL"
	KindEmail        TaskKind = "EMAIL"
	KindPresentation TaskKind = "PRESENTATION"
)

// ParseTaskKind reports whether s names one of the known task kinds.
func ParseTaskKind(s string) (TaskKind, bool) {
	switch k := TaskKind(s); k {
	case KindGeneral, KindEmail, KindPresentation:
		return k, true
	}
	return "", false
}

type TaskStatus string

const (
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Task is one user request and its tracked outcome. Kind never changes
// after the row is created.
type Task struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Kind   TaskKind        `json:"kind"`
	Prompt string          `json:"prompt"`
	Result json.RawMessage `json:"result,omitempty"`
	Status TaskStatus      `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
