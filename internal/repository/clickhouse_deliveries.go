package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmoiron/sqlx"
)

// Delivery is one report row as stored in ClickHouse.
type Delivery struct {
	CampaignID  string    `db:"campaign_id"  json:"campaign_id"`
	TenantID    string    `db:"tenant_id"    json:"tenant_id"`
	Position    uint32    `db:"position"     json:"position"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Name        string    `db:"name"         json:"name"`
	Phone       string    `db:"phone"        json:"phone"`
	Text        string    `db:"text"         json:"text"`
	Status      string    `db:"status"       json:"status"`
	Detail      string    `db:"detail"       json:"detail"`
	Mode        string    `db:"mode"         json:"mode"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// CHDeliveriesRepository keeps the per-recipient history of dispatch passes.
type CHDeliveriesRepository interface {
	InsertReport(ctx context.Context, c model.Campaign, report model.Report) error
	ListByTenant(ctx context.Context, tenantID, campaignID, phone string, status model.MessageStatus, limit, offset int) ([]Delivery, error)
}

type chDeliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHDeliveriesRepository(ch *sqlx.DB) CHDeliveriesRepository {
	return &chDeliveriesRepository{ch: ch}
}

// InsertReport writes the report as one ClickHouse batch (prepared insert in a tx).
func (r *chDeliveriesRepository) InsertReport(ctx context.Context, c model.Campaign, report model.Report) error {
	if report.Len() == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO salon.deliveries
		    (campaign_id, tenant_id, position, recipient_id, name, phone, text, status, detail, mode, created_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, m := range report.Messages {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.TenantID, uint32(i), m.Recipient.ID, m.Recipient.Name, m.Recipient.Phone,
			m.Text, m.Status.String(), m.Detail, c.Mode.String(), now,
		); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func (r *chDeliveriesRepository) ListByTenant(ctx context.Context, tenantID, campaignID, phone string, status model.MessageStatus, limit, offset int) ([]Delivery, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT campaign_id, tenant_id, position, recipient_id, name, phone, text, status, detail, mode, created_at
		FROM salon.deliveries
		WHERE tenant_id = ?
	`
	args := []any{tenantID}

	if campaignID != "" {
		q += " AND campaign_id = ?"
		args = append(args, campaignID)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}
	if phone != "" {
		q += " AND phone = ?"
		args = append(args, phone)
	}

	q += " ORDER BY created_at DESC, position ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []Delivery
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
