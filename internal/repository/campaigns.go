package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmoiron/sqlx"
)

type CampaignsRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error
	Get(ctx context.Context, tenantID, id string) (*model.Campaign, error)
	MarkRunning(ctx context.Context, id string, total int) error
	Finish(ctx context.Context, id string, status model.CampaignStatus, sent, failed int, errMsg string) error
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	const q = `
		INSERT INTO campaigns
		    (id, tenant_id, salon, intent, mode, strategy, template, recipient_ids, status, total, created_at, updated_at)
		VALUES
		    (?,  ?,         ?,     ?,      ?,    ?,        ?,        ?,             'queued', 0,   NOW(),      NOW())
	`
	_, err := tx.ExecContext(ctx, q,
		c.ID, c.TenantID, c.Salon, c.Intent, c.Mode.String(), c.Strategy.String(), c.Template, c.RecipientIDs,
	)
	return err
}

// Get returns nil, nil when the campaign does not exist for the tenant.
// An empty tenantID skips the tenant filter (worker side).
func (r *CampaignsRepositoryImpl) Get(ctx context.Context, tenantID, id string) (*model.Campaign, error) {
	q := `
		SELECT id, tenant_id, salon, intent, mode, strategy, template, recipient_ids,
		       status, total, sent, failed, error, created_at, updated_at
		  FROM campaigns
		 WHERE id = ?`
	args := []any{id}
	if tenantID != "" {
		q += " AND tenant_id = ?"
		args = append(args, tenantID)
	}

	var c model.Campaign
	err := r.db.GetContext(ctx, &c, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignsRepositoryImpl) MarkRunning(ctx context.Context, id string, total int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'running', total = ?, updated_at = NOW() WHERE id = ?
	`, total, id)
	return err
}

func (r *CampaignsRepositoryImpl) Finish(ctx context.Context, id string, status model.CampaignStatus, sent, failed int, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		   SET status = ?, sent = ?, failed = ?, error = ?, updated_at = NOW()
		 WHERE id = ?
	`, status.String(), sent, failed, errMsg, id)
	return err
}
