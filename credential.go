package doorman

import "time"

// Credential is a persisted remember-me credential following the
// selector/validator pattern: LookupKey is a short public selector used
// for indexed lookup, TokenHash is the bcrypt hash of the secret
// validator. The raw validator only ever exists in the client's cookie.
//
// There is at most one credential per (AccountID, ClientSignature)
// pair; re-issuing for the same account and client updates the row in
// place rather than accumulating orphans.
type Credential struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	ClientSignature string    `json:"client_signature"`
	LookupKey       string    `json:"lookup_key"`
	TokenHash       string    `json:"token_hash"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the credential has passed its expiry.
// Expiry is enforced at resolution time; sweeping expired rows is the
// job of remember.Reaper.
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
