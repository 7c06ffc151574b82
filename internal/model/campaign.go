package model

// CampaignStatus is the lifecycle status of a campaign as reported by the
// external dispatcher. sent and failed are terminal.
type CampaignStatus string

const (
	StatusIdle    CampaignStatus = "idle"
	StatusSending CampaignStatus = "sending"
	StatusPaused  CampaignStatus = "paused"
	StatusSent    CampaignStatus = "sent"
	StatusFailed  CampaignStatus = "failed"
)

func (s CampaignStatus) String() string { return string(s) }

// Terminal reports whether no further transitions are possible.
func (s CampaignStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

func (s CampaignStatus) IsValid() bool {
	switch s {
	case StatusIdle, StatusSending, StatusPaused, StatusSent, StatusFailed:
		return true
	}
	return false
}

// CampaignConfig is the operator-submitted configuration. Immutable once the
// campaign has started; changing parameters means creating a new campaign.
type CampaignConfig struct {
	Title             string `json:"title"`
	FromName          string `json:"from_name"`
	ListIDs           []int  `json:"list_ids"`
	StartSequence     int    `json:"start_sequence"`
	DelaySeconds      int    `json:"delay_seconds"`
	EmailsPerSequence int    `json:"emails_per_sequence"`
	MaxSequences      int    `json:"max_sequences"`
	DispatchURL       string `json:"dispatch_url"`
}

// CampaignState mirrors the dispatcher-owned campaign row. The orchestrator
// only ever reads it; all mutation happens on the dispatcher side.
type CampaignState struct {
	ID              string         `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Status          CampaignStatus `db:"status" json:"status"`
	Total           int            `db:"total" json:"total"`
	SentCount       int            `db:"sent_count" json:"sent_count"`
	CurrentSequence int            `db:"current_sequence" json:"current_sequence"`
	ErrorMessage    *string        `db:"error_message" json:"error_message,omitempty"`
}
