package models

import "time"

type CampaignStatus string

const (
	CampaignSending   CampaignStatus = "SENDING"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignFailed    CampaignStatus = "FAILED"
)

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "PENDING"
	RecipientSent    RecipientStatus = "SENT"
	RecipientFailed  RecipientStatus = "FAILED"
)

type Campaign struct {
	ID      string         `json:"id"`
	UserID  string         `json:"user_id"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Status  CampaignStatus `json:"status"`

	Recipients []Recipient `json:"recipients,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Recipient moves from PENDING to SENT or FAILED exactly once.
type Recipient struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	Email      string          `json:"email"`
	Status     RecipientStatus `json:"status"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
	ErrorMsg   *string         `json:"error,omitempty"`
}
