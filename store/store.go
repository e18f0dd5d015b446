// Package store defines the entity persistence contract consumed by
// the authentication layer. Accounts and remember-me credentials are
// read and written only through these narrow interfaces; the backing
// implementation (memory, bbolt, postgres) is chosen at wiring time.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dverhagen/doorman"
)

// ErrNotFound is returned by lookups that match no record. Callers in
// the core translate it into a verification failure, never a crash.
var ErrNotFound = errors.New("record not found")

// AccountStore persists accounts.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*doorman.Account, error)
	FindByEmail(ctx context.Context, email string) (*doorman.Account, error)
	Save(ctx context.Context, account *doorman.Account) error
	Delete(ctx context.Context, id string) error
}

// CredentialStore persists remember-me credentials.
type CredentialStore interface {
	FindByLookupKey(ctx context.Context, lookupKey string) (*doorman.Credential, error)
	FindByAccountAndSignature(ctx context.Context, accountID, signature string) (*doorman.Credential, error)
	Save(ctx context.Context, credential *doorman.Credential) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes credentials whose expiry is before the
	// given instant and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
