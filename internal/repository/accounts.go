package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrDuplicate = errors.New("duplicate key")

type AccountsRepository interface {
	Create(ctx context.Context, a model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

func (r *AccountsRepositoryImpl) Create(ctx context.Context, a model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, salon_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
	`, a.ID, strings.ToLower(a.Email), a.PasswordHash, a.SalonName)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrDuplicate
	}
	return err
}

func (r *AccountsRepositoryImpl) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, `
		SELECT id, email, password_hash, salon_name, created_at, updated_at
		  FROM accounts
		 WHERE email = ? LIMIT 1
	`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *AccountsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, `
		SELECT id, email, password_hash, salon_name, created_at, updated_at
		  FROM accounts
		 WHERE id = ? LIMIT 1
	`, id)
}

func (r *AccountsRepositoryImpl) getOne(ctx context.Context, q string, arg any) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = ?, updated_at = NOW() WHERE id = ?
	`, hash, id)
	return err
}
