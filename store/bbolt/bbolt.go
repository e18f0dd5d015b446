// Package bbolt provides BBolt-backed implementations of the store
// interfaces. Records are stored as JSON under one bucket per entity
// type, keyed by record ID; secondary lookups scan the bucket, which is
// acceptable at the row counts a single-node deployment sees.
package bbolt

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/dverhagen/doorman/store"
)

var (
	accountsBucket    = []byte("accounts")
	credentialsBucket = []byte("credentials")
)

// DB wraps a BBolt database and hands out the entity stores bound to it.
type DB struct {
	db *bbolt.DB
}

// Open opens a BBolt database at the given path and ensures the entity
// buckets exist.
func Open(path string, options *bbolt.Options) (*DB, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{accountsBucket, credentialsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying BBolt database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Accounts returns the account store bound to this database.
func (d *DB) Accounts() *AccountStore {
	return &AccountStore{db: d.db}
}

// Credentials returns the credential store bound to this database.
func (d *DB) Credentials() *CredentialStore {
	return &CredentialStore{db: d.db}
}

func putJSON(db *bbolt.DB, bucket []byte, id string, v any) error {
	return db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		return tx.Bucket(bucket).Put([]byte(id), data)
	})
}

func getJSON(db *bbolt.DB, bucket []byte, id string, v any) error {
	return db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s/%s: %w", bucket, id, store.ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

func deleteByID(db *bbolt.DB, bucket []byte, id string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s/%s: %w", bucket, id, store.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}
