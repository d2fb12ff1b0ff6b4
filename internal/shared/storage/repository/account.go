package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"
)

const accountColumns = `id, email, name, password_hash, role, status, created_at, updated_at, last_login_at`

// CreateAccount 创建账户，邮箱冲突返回 storage.ErrDuplicate
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`),
		account.ID, account.Email, account.Name, account.PasswordHash,
		account.Role, account.Status, account.CreatedAt, account.UpdatedAt, account.LastLoginAt,
	)
	return s.wrapError(err)
}

// GetAccountByEmail 通过邮箱查找账户
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`), email)
	return scanAccount(row)
}

// GetAccountByID 通过 ID 查找账户
func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`), id)
	return scanAccount(row)
}

// UpdateAccount 部分更新账户并返回更新后的记录
func (s *Store) UpdateAccount(ctx context.Context, id string, update storage.AccountUpdate) (*model.Account, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.Role != nil {
		add("role", string(*update.Role))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.LastLoginAt != nil {
		add("last_login_at", *update.LastLoginAt)
	}
	add("updated_at", time.Now())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetAccountByID(ctx, id)
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	acc := &model.Account{}
	var lastLogin sql.NullTime
	err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash,
		&acc.Role, &acc.Status, &acc.CreatedAt, &acc.UpdatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acc.LastLoginAt = &t
	}
	return acc, nil
}
