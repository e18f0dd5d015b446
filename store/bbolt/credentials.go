package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/store"
)

// CredentialStore implements store.CredentialStore on a BBolt bucket.
type CredentialStore struct {
	db *bbolt.DB
}

var _ store.CredentialStore = (*CredentialStore)(nil)

func (s *CredentialStore) FindByLookupKey(ctx context.Context, lookupKey string) (*doorman.Credential, error) {
	return s.findFirst(func(c *doorman.Credential) bool {
		return c.LookupKey == lookupKey
	})
}

func (s *CredentialStore) FindByAccountAndSignature(ctx context.Context, accountID, signature string) (*doorman.Credential, error) {
	return s.findFirst(func(c *doorman.Credential) bool {
		return c.AccountID == accountID && c.ClientSignature == signature
	})
}

func (s *CredentialStore) findFirst(match func(*doorman.Credential) bool) (*doorman.Credential, error) {
	var found *doorman.Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(credentialsBucket).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			var cred doorman.Credential
			if err := json.Unmarshal(v, &cred); err != nil {
				return fmt.Errorf("decoding credential record: %w", err)
			}
			if match(&cred) {
				found = &cred
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *CredentialStore) Save(_ context.Context, credential *doorman.Credential) error {
	return putJSON(s.db, credentialsBucket, credential.ID, credential)
}

func (s *CredentialStore) Delete(_ context.Context, id string) error {
	return deleteByID(s.db, credentialsBucket, id)
}

func (s *CredentialStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(credentialsBucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var cred doorman.Credential
			if err := json.Unmarshal(v, &cred); err != nil {
				// Corrupt entry — remove it.
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if before.After(cred.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
