package models

import "time"

type PresentationStatus string

const (
	PresentationGenerating PresentationStatus = "GENERATING"
	PresentationCompleted  PresentationStatus = "COMPLETED"
	PresentationFailed     PresentationStatus = "FAILED"
)

type Slide struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type SlideDeck struct {
	Slides []Slide `json:"slides"`
}

type Presentation struct {
	ID      string             `json:"id"`
	UserID  string             `json:"user_id"`
	Topic   string             `json:"topic"`
	Status  PresentationStatus `json:"status"`
	Content SlideDeck          `json:"content"`
	PDFURL  *string            `json:"pdf_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimelineSnapshot is the per-user read of all three task sources,
// taken in one read-only transaction.
type TimelineSnapshot struct {
	Tasks         []Task
	Campaigns     []Campaign
	Presentations []Presentation
}
