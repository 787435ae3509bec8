package model

import "time"

type CampaignStatus string

const (
	CampaignQueued  CampaignStatus = "queued"
	CampaignRunning CampaignStatus = "running"
	CampaignDone    CampaignStatus = "done"
	CampaignFailed  CampaignStatus = "failed"
)

func (s CampaignStatus) String() string { return string(s) }

// Campaign is a persisted campaign request. RecipientIDs empty means the whole roster.
type Campaign struct {
	ID           string         `db:"id"            json:"id"`
	TenantID     string         `db:"tenant_id"     json:"tenant_id"`
	Salon        string         `db:"salon"         json:"salon"`
	Intent       string         `db:"intent"        json:"intent"`
	Mode         Mode           `db:"mode"          json:"mode"`
	Strategy     StrategyKind   `db:"strategy"      json:"strategy"`
	Template     string         `db:"template"      json:"template,omitempty"`
	RecipientIDs StringList     `db:"recipient_ids" json:"recipient_ids,omitempty"`
	Status       CampaignStatus `db:"status"        json:"status"`
	Total        int            `db:"total"         json:"total"`
	Sent         int            `db:"sent"          json:"sent"`
	Failed       int            `db:"failed"        json:"failed"`
	Error        string         `db:"error"         json:"error,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"    json:"updated_at"`
}
