// Package postgres implements the store interfaces backed by
// PostgreSQL. Accounts and credentials live in their own tables;
// the credentials table carries a unique (account_id, client_signature)
// constraint so a re-issue for the same device updates in place, and an
// index on lookup_key for O(1) remember-me resolution.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool and hands out the entity stores bound
// to it.
type DB struct {
	pool *pgxpool.Pool
}

// New returns a DB backed by the given pgx connection pool.
func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Open creates a connection pool from a DSN string, ensures the schema
// exists, and returns a new DB.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return New(pool), nil
}

// Pool returns the underlying connection pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// Close closes the underlying connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Accounts returns the account store bound to this pool.
func (d *DB) Accounts() *AccountStore {
	return &AccountStore{pool: d.pool}
}

// Credentials returns the credential store bound to this pool.
func (d *DB) Credentials() *CredentialStore {
	return &CredentialStore{pool: d.pool}
}
