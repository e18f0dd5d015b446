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

// CredentialStore implements store.CredentialStore on PostgreSQL.
type CredentialStore struct {
	pool *pgxpool.Pool
}

var _ store.CredentialStore = (*CredentialStore)(nil)

const credentialColumns = `id, account_id, client_signature, lookup_key, token_hash, expires_at`

func scanCredential(row pgx.Row) (*doorman.Credential, error) {
	var cred doorman.Credential
	err := row.Scan(&cred.ID, &cred.AccountID, &cred.ClientSignature,
		&cred.LookupKey, &cred.TokenHash, &cred.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *CredentialStore) FindByLookupKey(ctx context.Context, lookupKey string) (*doorman.Credential, error) {
	return scanCredential(s.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM persistent_logins WHERE lookup_key = $1`, lookupKey))
}

func (s *CredentialStore) FindByAccountAndSignature(ctx context.Context, accountID, signature string) (*doorman.Credential, error) {
	return scanCredential(s.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM persistent_logins
		 WHERE account_id = $1 AND client_signature = $2`, accountID, signature))
}

func (s *CredentialStore) Save(ctx context.Context, credential *doorman.Credential) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO persistent_logins (id, account_id, client_signature, lookup_key, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id)
		 DO UPDATE SET account_id = $2, client_signature = $3, lookup_key = $4, token_hash = $5, expires_at = $6`,
		credential.ID, credential.AccountID, credential.ClientSignature,
		credential.LookupKey, credential.TokenHash, credential.ExpiresAt)
	return err
}

func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM persistent_logins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *CredentialStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM persistent_logins WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
