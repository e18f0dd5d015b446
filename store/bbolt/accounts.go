package bbolt

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/store"
)

// AccountStore implements store.AccountStore on a BBolt bucket.
type AccountStore struct {
	db *bbolt.DB
}

var _ store.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) FindByID(_ context.Context, id string) (*doorman.Account, error) {
	var account doorman.Account
	if err := getJSON(s.db, accountsBucket, id, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (*doorman.Account, error) {
	var found *doorman.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			var account doorman.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return fmt.Errorf("decoding account record: %w", err)
			}
			if account.Email == email {
				found = &account
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

func (s *AccountStore) Save(_ context.Context, account *doorman.Account) error {
	return putJSON(s.db, accountsBucket, account.ID, account)
}

func (s *AccountStore) Delete(_ context.Context, id string) error {
	return deleteByID(s.db, accountsBucket, id)
}
