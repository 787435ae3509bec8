package repository

import (
	"context"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"github.com/jmoiron/sqlx"
)

// RecipientsRepository is the tenant-partitioned client roster.
// All filters are equality filters on tenant_id and id.
type RecipientsRepository interface {
	Insert(ctx context.Context, r model.Recipient) (model.Recipient, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Recipient, error)
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Recipient, error)
	UpsertBulk(ctx context.Context, tenantID string, rs []model.Recipient) (int, error)
	DeleteWhere(ctx context.Context, tenantID string, ids []string) (int64, error)
}

type RecipientsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRecipientsRepository(db *sqlx.DB) *RecipientsRepositoryImpl {
	return &RecipientsRepositoryImpl{db: db}
}

var _ RecipientsRepository = (*RecipientsRepositoryImpl)(nil)

const recipientCols = `id, tenant_id, name, phone, last_service, visit_date, created_at, updated_at`

func (r *RecipientsRepositoryImpl) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// Insert stores a new recipient and returns it with ID and normalized phone.
func (r *RecipientsRepositoryImpl) Insert(ctx context.Context, rec model.Recipient) (model.Recipient, error) {
	rec.ID = util.NewID()
	rec.Phone = util.NormalizePhone(rec.Phone)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recipients
		    (id, tenant_id, name, phone, last_service, visit_date, created_at, updated_at)
		VALUES
		    (?,  ?,         ?,    ?,     ?,            ?,          NOW(),      NOW())
	`, rec.ID, rec.TenantID, rec.Name, rec.Phone, rec.LastService, rec.VisitDate)
	return rec, err
}

// ListByTenant returns the roster, newest first.
func (r *RecipientsRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]model.Recipient, error) {
	var rows []model.Recipient
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+recipientCols+` FROM recipients WHERE tenant_id = ? ORDER BY created_at DESC, id DESC`, tenantID)
	return rows, err
}

// GetByIDs returns the tenant's recipients in the order of ids; unknown ids are skipped.
func (r *RecipientsRepositoryImpl) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+recipientCols+` FROM recipients WHERE tenant_id = ? AND id IN (?)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	var rows []model.Recipient
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}

	byID := make(map[string]model.Recipient, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]model.Recipient, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
			delete(byID, id)
		}
	}
	return out, nil
}

// UpsertBulk updates recipients the tenant owns and inserts the rest with
// fresh IDs, in one transaction. Returns the number of rows written.
func (r *RecipientsRepositoryImpl) UpsertBulk(ctx context.Context, tenantID string, rs []model.Recipient) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(rs))
	for _, rec := range rs {
		if rec.ID != "" {
			ids = append(ids, rec.ID)
		}
	}
	owned, err := r.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return 0, err
	}
	isOwned := make(map[string]bool, len(owned))
	for _, o := range owned {
		isOwned[o.ID] = true
	}

	var sb strings.Builder
	args := make([]any, 0, len(rs)*6)
	sb.WriteString(`INSERT INTO recipients (id, tenant_id, name, phone, last_service, visit_date, created_at, updated_at) VALUES `)
	for i, rec := range rs {
		if !isOwned[rec.ID] {
			rec.ID = util.NewID()
		}
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, NOW(), NOW())")
		args = append(args, rec.ID, tenantID, rec.Name, util.NormalizePhone(rec.Phone), rec.LastService, rec.VisitDate)
	}
	sb.WriteString(` ON DUPLICATE KEY UPDATE
		name = VALUES(name),
		phone = VALUES(phone),
		last_service = VALUES(last_service),
		visit_date = VALUES(visit_date),
		updated_at = NOW()`)

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(rs), nil
}

// DeleteWhere removes the given ids, scoped to the tenant.
func (r *RecipientsRepositoryImpl) DeleteWhere(ctx context.Context, tenantID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM recipients WHERE tenant_id = ? AND id IN (?)`, tenantID, ids)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
