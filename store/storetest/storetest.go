// Package storetest provides a conformance suite shared by the store
// backends. Each backend's tests construct fresh stores and hand them
// to the suite.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/store"
)

// RunAccountStore exercises the store.AccountStore contract.
func RunAccountStore(t *testing.T, s store.AccountStore) {
	ctx := context.Background()

	account := &doorman.Account{
		ID:           "a1",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		DisplayName:  "Alice",
		Role:         doorman.RoleEditor,
		ActivatedAt:  time.Now().UTC().Truncate(time.Second),
	}

	t.Run("FindByID missing", func(t *testing.T) {
		_, err := s.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Save and FindByID", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, account))
		got, err := s.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, account.Email, got.Email)
		assert.Equal(t, doorman.RoleEditor, got.Role)
		assert.True(t, got.Activated())
	})

	t.Run("FindByEmail", func(t *testing.T) {
		got, err := s.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)

		_, err = s.FindByEmail(ctx, "bob@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Save updates in place", func(t *testing.T) {
		account.Role = doorman.RoleAdmin
		require.NoError(t, s.Save(ctx, account))
		got, err := s.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, doorman.RoleAdmin, got.Role)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "a1"))
		_, err := s.FindByID(ctx, "a1")
		assert.ErrorIs(t, err, store.ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, "a1"), store.ErrNotFound)
	})
}

// RunCredentialStore exercises the store.CredentialStore contract.
func RunCredentialStore(t *testing.T, s store.CredentialStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	cred := &doorman.Credential{
		ID:              "c1",
		AccountID:       "a1",
		ClientSignature: "sig-1",
		LookupKey:       "0011223344556677",
		TokenHash:       "$2a$10$fakefakefakefakefakefake",
		ExpiresAt:       now.Add(24 * time.Hour),
	}

	t.Run("FindByLookupKey missing", func(t *testing.T) {
		_, err := s.FindByLookupKey(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Save and FindByLookupKey", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, cred))
		got, err := s.FindByLookupKey(ctx, cred.LookupKey)
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
		assert.Equal(t, "a1", got.AccountID)
	})

	t.Run("FindByAccountAndSignature", func(t *testing.T) {
		got, err := s.FindByAccountAndSignature(ctx, "a1", "sig-1")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)

		_, err = s.FindByAccountAndSignature(ctx, "a1", "other-sig")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByAccountAndSignature(ctx, "a2", "sig-1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Save rotates in place", func(t *testing.T) {
		rotated := *cred
		rotated.LookupKey = "8899aabbccddeeff"
		rotated.TokenHash = "$2a$10$otherotherotherotherother"
		require.NoError(t, s.Save(ctx, &rotated))

		_, err := s.FindByLookupKey(ctx, cred.LookupKey)
		assert.ErrorIs(t, err, store.ErrNotFound, "old lookup key must be gone")

		got, err := s.FindByLookupKey(ctx, rotated.LookupKey)
		require.NoError(t, err)
		assert.Equal(t, rotated.TokenHash, got.TokenHash)
		cred.LookupKey = rotated.LookupKey
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		expired := &doorman.Credential{
			ID:              "c2",
			AccountID:       "a1",
			ClientSignature: "sig-2",
			LookupKey:       "ffeeddccbbaa9988",
			TokenHash:       "$2a$10$fakefakefakefakefakefake",
			ExpiresAt:       now.Add(-time.Hour),
		}
		require.NoError(t, s.Save(ctx, expired))

		n, err := s.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.FindByLookupKey(ctx, expired.LookupKey)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByLookupKey(ctx, cred.LookupKey)
		assert.NoError(t, err, "live credential must survive the sweep")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "c1"))
		_, err := s.FindByLookupKey(ctx, cred.LookupKey)
		assert.ErrorIs(t, err, store.ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, "c1"), store.ErrNotFound)
	})
}
