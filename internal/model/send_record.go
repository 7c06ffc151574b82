package model

import "time"

// SendStatus is the per-recipient delivery status. Records move
// pending → sending → {sent, failed} and never regress.
type SendStatus string

const (
	SendPending SendStatus = "pending"
	SendSending SendStatus = "sending"
	SendSent    SendStatus = "sent"
	SendFailed  SendStatus = "failed"
)

func (s SendStatus) String() string { return string(s) }

// Terminal reports whether the record has reached a final status.
func (s SendStatus) Terminal() bool {
	return s == SendSent || s == SendFailed
}

// SendRecord is one dispatcher-owned row per (campaign, recipient).
type SendRecord struct {
	ID          int        `db:"id" json:"id"`
	CampaignID  string     `db:"campaign_id" json:"campaign_id"`
	Email       string     `db:"email" json:"email"`
	Name        string     `db:"name" json:"name"`
	Status      SendStatus `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
}
