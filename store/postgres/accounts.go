package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/store"
)

// AccountStore implements store.AccountStore on PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

var _ store.AccountStore = (*AccountStore)(nil)

const accountColumns = `id, email, password_hash, display_name, role, activated_at, last_login_at`

func scanAccount(row pgx.Row) (*doorman.Account, error) {
	var (
		account     doorman.Account
		activatedAt *time.Time
		lastLoginAt *time.Time
	)
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash,
		&account.DisplayName, &account.Role, &activatedAt, &lastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if activatedAt != nil {
		account.ActivatedAt = *activatedAt
	}
	if lastLoginAt != nil {
		account.LastLoginAt = *lastLoginAt
	}
	return &account, nil
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (*doorman.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*doorman.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

func (s *AccountStore) Save(ctx context.Context, account *doorman.Account) error {
	var activatedAt, lastLoginAt *time.Time
	if !account.ActivatedAt.IsZero() {
		activatedAt = &account.ActivatedAt
	}
	if !account.LastLoginAt.IsZero() {
		lastLoginAt = &account.LastLoginAt
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, display_name, role, activated_at, last_login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id)
		 DO UPDATE SET email = $2, password_hash = $3, display_name = $4, role = $5, activated_at = $6, last_login_at = $7`,
		account.ID, account.Email, account.PasswordHash, account.DisplayName,
		account.Role, activatedAt, lastLoginAt)
	return err
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
