package model

import "time"

// Recipient is one roster entry of a salon (tenant).
type Recipient struct {
	ID          string     `db:"id"           json:"id"`
	TenantID    string     `db:"tenant_id"    json:"tenant_id"`
	Name        string     `db:"name"         json:"name"`
	Phone       string     `db:"phone"        json:"phone"`
	LastService string     `db:"last_service" json:"last_service"`
	VisitDate   *time.Time `db:"visit_date"   json:"visit_date,omitempty"` // nullable
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}
