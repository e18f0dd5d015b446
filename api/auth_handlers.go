package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/internal/httpinfo"
	"github.com/dverhagen/doorman/secure"
	"github.com/dverhagen/doorman/store"
)

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acct, err := a.storage.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		a.audit.logFailure(AuditLoginFailure, r, "account not found")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if !secure.VerifyPassword(req.Password, acct.PasswordHash) {
		a.audit.logFailure(AuditLoginFailure, r, "invalid password", "account_id", acct.ID)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !acct.Activated() {
		a.audit.logFailure(AuditLoginFailure, r, "account not activated", "account_id", acct.ID)
		writeError(w, http.StatusForbidden, "account not activated")
		return
	}

	if err := a.accounts.EstablishSessionIntegrity(w, r, acct); err != nil {
		// Login did not complete — roll the session back.
		_ = a.accounts.DeleteSession(w, r)
		writeError(w, http.StatusInternalServerError, "failed to establish session")
		return
	}

	if req.Remember {
		if err := a.remember.Create(w, r, acct.ID); err != nil {
			_ = a.accounts.DeleteSession(w, r)
			writeError(w, http.StatusInternalServerError, "failed to create persistent login")
			return
		}
	}

	// Last-login is advisory; a failed write must not undo the login.
	acct.LastLoginAt = time.Now().UTC()
	if err := a.storage.Save(r.Context(), acct); err != nil {
		a.audit.logFailure(AuditLoginSuccess, r, "failed to record last login", "account_id", acct.ID)
	}

	a.audit.logEvent(AuditLoginSuccess, r, acct.ID)
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

// Logout handles POST /auth/logout. Both the session and any
// persistent-login credential for this client are torn down.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	var accountID string
	if acct, err := a.accounts.LoggedInAccount(w, r); err == nil && acct != nil {
		accountID = acct.ID
	}

	if err := a.remember.Delete(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to revoke persistent login")
		return
	}
	if err := a.accounts.DeleteSession(w, r); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to destroy session")
		return
	}
	a.clearCSRFCookie(w, r)

	a.audit.logEvent(AuditLogout, r, accountID)
	writeJSON(w, http.StatusOK, struct{}{})
}

// WhoAmI handles GET /auth/whoami. When the session yields no account,
// the persistent-login cookie is tried: a successful resolution
// re-establishes the session and rotates the credential so a captured
// cookie value cannot be replayed later.
func (a *API) WhoAmI(w http.ResponseWriter, r *http.Request) {
	acct, err := a.accounts.LoggedInAccount(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read session")
		return
	}
	if acct == nil {
		acct = a.restoreFromPersistentLogin(w, r)
	}
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func (a *API) restoreFromPersistentLogin(w http.ResponseWriter, r *http.Request) *doorman.Account {
	accountID, ok, err := a.remember.Resolve(r)
	if err != nil || !ok {
		return nil
	}
	acct, err := a.storage.FindByID(r.Context(), accountID)
	if err != nil {
		return nil
	}
	if err := a.accounts.CreateSession(w, r, acct); err != nil {
		return nil
	}
	if err := a.remember.Rotate(w, r, acct.ID); err != nil {
		a.audit.logFailure(AuditRememberUsed, r, "failed to rotate credential", "account_id", acct.ID)
	}
	a.audit.logEvent(AuditSessionRestore, r, acct.ID)
	return acct
}

// CSRFToken handles GET /auth/csrf: it issues a fresh token, sets its
// proof as a cookie, and returns the token for the client to submit in
// the X-CSRF-Token header on mutating requests.
func (a *API) CSRFToken(w http.ResponseWriter, r *http.Request) {
	pair, err := secure.GenerateProof()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate CSRF token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.csrfCookieName,
		Value:    pair.CookieProof,
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, CSRFTokenResponse{Token: pair.Token})
}

func (a *API) clearCSRFCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.csrfCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
