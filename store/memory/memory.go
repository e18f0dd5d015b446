// Package memory provides thread-safe in-memory implementations of the
// store interfaces. Suitable for testing, demos, and single-process use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/store"
)

// AccountStore is a thread-safe in-memory store.AccountStore.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*doorman.Account
}

var _ store.AccountStore = (*AccountStore)(nil)

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]*doorman.Account)}
}

func cloneAccount(a *doorman.Account) *doorman.Account {
	cp := *a
	return &cp
}

func (s *AccountStore) FindByID(_ context.Context, id string) (*doorman.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (*doorman.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *AccountStore) Save(_ context.Context, account *doorman.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (s *AccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// CredentialStore is a thread-safe in-memory store.CredentialStore.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]*doorman.Credential
}

var _ store.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore creates an empty in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{credentials: make(map[string]*doorman.Credential)}
}

func cloneCredential(c *doorman.Credential) *doorman.Credential {
	cp := *c
	return &cp
}

func (s *CredentialStore) FindByLookupKey(_ context.Context, lookupKey string) (*doorman.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.LookupKey == lookupKey {
			return cloneCredential(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *CredentialStore) FindByAccountAndSignature(_ context.Context, accountID, signature string) (*doorman.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.AccountID == accountID && c.ClientSignature == signature {
			return cloneCredential(c), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *CredentialStore) Save(_ context.Context, credential *doorman.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.ID] = cloneCredential(credential)
	return nil
}

func (s *CredentialStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.credentials, id)
	return nil
}

func (s *CredentialStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, c := range s.credentials {
		if before.After(c.ExpiresAt) {
			delete(s.credentials, id)
			n++
		}
	}
	return n, nil
}
