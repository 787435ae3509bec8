package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

var recipientColumns = []string{"id", "tenant_id", "name", "phone", "last_service", "visit_date", "created_at", "updated_at"}

func recipientRows(ids ...string) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recipientColumns)
	for _, id := range ids {
		rows.AddRow(id, "t1", "Client "+id, "48500000000", "manicure", nil, now, now)
	}
	return rows
}

// freshID matches a newly generated ULID that is not one of the rejected ids.
type freshID struct{ not []string }

func (f freshID) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return false
	}
	for _, n := range f.not {
		if s == n {
			return false
		}
	}
	return true
}

func TestRecipients_GetByIDsKeepsSelectionOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecipientsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM recipients WHERE tenant_id = ? AND id IN (?, ?, ?, ?)`)).
		WithArgs("t1", "r3", "r1", "r3", "unknown").
		WillReturnRows(recipientRows("r1", "r3"))

	got, err := repo.GetByIDs(context.Background(), "t1", []string{"r3", "r1", "r3", "unknown"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r3", got[0].ID)
	assert.Equal(t, "r1", got[1].ID)
	assert.Nil(t, got[0].VisitDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipients_GetByIDsEmpty(t *testing.T) {
	db, mock := newMockDB(t)

	got, err := NewRecipientsRepository(db).GetByIDs(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipients_UpsertBulkReassignsForeignIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecipientsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM recipients WHERE tenant_id = ? AND id IN (?, ?)`)).
		WithArgs("t1", "r1", "other-tenant-id").
		WillReturnRows(recipientRows("r1"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO recipients (id, tenant_id, name, phone, last_service, visit_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW()),(?, ?, ?, ?, ?, ?, NOW(), NOW()),(?, ?, ?, ?, ?, ?, NOW(), NOW()) ON DUPLICATE KEY UPDATE`)).
		WithArgs(
			"r1", "t1", "Anna", "48500600700", "manicure", nil,
			freshID{not: []string{"other-tenant-id"}}, "t1", "Ola", "48111222333", "pedicure", nil,
			freshID{}, "t1", "Kasia", "48999888777", "", nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.UpsertBulk(context.Background(), "t1", []model.Recipient{
		{ID: "r1", Name: "Anna", Phone: "500 600 700", LastService: "manicure"},
		{ID: "other-tenant-id", TenantID: "t2", Name: "Ola", Phone: "+48 111 222 333", LastService: "pedicure"},
		{Name: "Kasia", Phone: "0048999888777"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipients_UpsertBulkRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecipientsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO recipients`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.UpsertBulk(context.Background(), "t1", []model.Recipient{{Name: "Ewa", Phone: "500600700"}})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipients_DeleteWhereScopedToTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecipientsRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM recipients WHERE tenant_id = ? AND id IN (?, ?)`)).
		WithArgs("t1", "r1", "r2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DeleteWhere(context.Background(), "t1", []string{"r1", "r2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.DeleteWhere(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
