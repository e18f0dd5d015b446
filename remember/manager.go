// Package remember issues, resolves, rotates, and revokes long-lived
// "keep me logged in" credentials using the selector/validator pattern:
// the cookie carries "lookupKey.token" where lookupKey is a short
// indexed selector and token is the secret whose bcrypt hash is stored
// server-side. A database leak therefore exposes no usable
// re-authentication secret, and the lookup stays O(1).
package remember

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/internal/httpinfo"
	"github.com/dverhagen/doorman/secure"
	"github.com/dverhagen/doorman/store"
)

const (
	// DefaultCookieName is the persistent-login cookie name.
	DefaultCookieName = "doorman_remember"
	// DefaultDuration is how long an issued credential stays valid.
	DefaultDuration = 30 * 24 * time.Hour
)

// Config controls the cookie name and credential lifetime.
type Config struct {
	CookieName string
	Duration   time.Duration
}

// Manager owns the persistent-login credential lifecycle.
type Manager struct {
	credentials store.CredentialStore
	cfg         Config
}

// NewManager creates a persistent-login manager on the given
// credential store.
func NewManager(credentials store.CredentialStore, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Manager{credentials: credentials, cfg: cfg}
}

// CookieName returns the persistent-login cookie name.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Create issues a persistent-login credential for the account on the
// requesting client. If a credential already exists for this
// (account, client signature) pair it is re-issued in place, so
// repeated logins from the same device never accumulate rows.
func (m *Manager) Create(w http.ResponseWriter, r *http.Request, accountID string) error {
	signature := Signature(r)
	cred, err := m.credentials.FindByAccountAndSignature(r.Context(), accountID, signature)
	if errors.Is(err, store.ErrNotFound) {
		cred = &doorman.Credential{
			ID:              uuid.NewString(),
			AccountID:       accountID,
			ClientSignature: signature,
		}
	} else if err != nil {
		return err
	}
	return m.issue(w, r, cred)
}

// issue gives the credential a fresh lookup key, token hash, and
// expiry, persists it, and sets the cookie to "lookupKey.token".
func (m *Manager) issue(w http.ResponseWriter, r *http.Request, cred *doorman.Credential) error {
	token, err := secure.GenerateToken(secure.TokenBytes)
	if err != nil {
		return err
	}
	lookupKey, err := secure.GenerateToken(secure.LookupKeyBytes)
	if err != nil {
		return err
	}
	tokenHash, err := secure.HashPassword(token)
	if err != nil {
		return err
	}

	cred.LookupKey = lookupKey
	cred.TokenHash = tokenHash
	cred.ExpiresAt = time.Now().Add(m.cfg.Duration)
	if err := m.credentials.Save(r.Context(), cred); err != nil {
		return fmt.Errorf("saving persistent login: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    lookupKey + "." + token,
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  cred.ExpiresAt,
	})
	return nil
}

// Resolve recovers the account ID from the persistent-login cookie.
// It returns ok=false — never an error — when the cookie is absent or
// malformed, the credential is unknown or expired, the client
// signature differs, or the token does not match the stored hash.
// A non-nil error indicates a store fault.
func (m *Manager) Resolve(r *http.Request) (accountID string, ok bool, err error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}
	lookupKey, token, valid := splitCookieValue(cookie.Value)
	if !valid {
		return "", false, nil
	}

	cred, err := m.credentials.FindByLookupKey(r.Context(), lookupKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if cred.ClientSignature != Signature(r) {
		return "", false, nil
	}
	if !secure.VerifyPassword(token, cred.TokenHash) {
		return "", false, nil
	}
	if cred.Expired(time.Now()) {
		return "", false, nil
	}
	return cred.AccountID, true, nil
}

// Rotate re-issues the credential matching the account and the current
// client signature, invalidating the previously issued cookie value.
// Calling it after every successful Resolve means a captured cookie
// stops working the moment the legitimate user returns. Without a
// matching credential it is a no-op.
func (m *Manager) Rotate(w http.ResponseWriter, r *http.Request, accountID string) error {
	cred, err := m.credentials.FindByAccountAndSignature(r.Context(), accountID, Signature(r))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.issue(w, r, cred)
}

// Delete expires the persistent-login cookie and removes the matching
// credential, if the cookie identified one. A missing or malformed
// cookie is a no-op, not an error.
func (m *Manager) Delete(w http.ResponseWriter, r *http.Request) error {
	cookie, cookieErr := r.Cookie(m.cfg.CookieName)

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	if cookieErr != nil || cookie.Value == "" {
		return nil
	}
	lookupKey, _, valid := splitCookieValue(cookie.Value)
	if !valid {
		return nil
	}
	cred, err := m.credentials.FindByLookupKey(r.Context(), lookupKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.credentials.Delete(r.Context(), cred.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// splitCookieValue splits "lookupKey.token" on the first dot. Both
// parts must be non-empty; anything else is rejected rather than
// indexed blindly.
func splitCookieValue(value string) (lookupKey, token string, ok bool) {
	i := strings.IndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}
