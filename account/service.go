// Package account implements the authenticated-session lifecycle: it
// establishes a session bound to an integrity token at login, resolves
// the logged-in account on each request, and tears the session down on
// logout or any integrity failure.
package account

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/guard"
	"github.com/dverhagen/doorman/internal/httpinfo"
	"github.com/dverhagen/doorman/secure"
	"github.com/dverhagen/doorman/session"
	"github.com/dverhagen/doorman/store"
)

// DefaultCookiePrefix namespaces the cookies this service sets.
const DefaultCookiePrefix = "doorman"

// Config controls cookie naming and session lifetime.
type Config struct {
	// CookiePrefix namespaces the session and integrity cookies.
	// Empty means DefaultCookiePrefix.
	CookiePrefix string
	// SessionTTL is passed through to the session layer. Zero means
	// session.DefaultTTL.
	SessionTTL time.Duration
}

// Service owns the session lifecycle for authenticated accounts.
type Service struct {
	backend  session.Backend
	accounts store.AccountStore
	cfg      Config
}

var _ guard.AccountSource = (*Service)(nil)

// NewService creates an account service on the given session backend
// and account store.
func NewService(backend session.Backend, accounts store.AccountStore, cfg Config) *Service {
	if cfg.CookiePrefix == "" {
		cfg.CookiePrefix = DefaultCookiePrefix
	}
	return &Service{backend: backend, accounts: accounts, cfg: cfg}
}

// SessionCookieName returns the name of the session ID cookie.
func (s *Service) SessionCookieName() string {
	return s.cfg.CookiePrefix + "_session"
}

// IntegrityCookieName returns the name of the cookie carrying the
// session integrity proof.
func (s *Service) IntegrityCookieName() string {
	return s.cfg.CookiePrefix + "_integrity"
}

func (s *Service) session(w http.ResponseWriter, r *http.Request) *session.Session {
	return session.New(w, r, s.backend, session.Config{
		CookieName: s.SessionCookieName(),
		TTL:        s.cfg.SessionTTL,
	})
}

// EstablishSessionIntegrity starts a fresh authenticated session for
// the account: it clears any pre-login state, renews the session
// identifier, stores the integrity token plus account ID and role, and
// sets the integrity cookie to the token's proof.
//
// Any error means the login did not complete; the caller must roll back
// with DeleteSession.
func (s *Service) EstablishSessionIntegrity(w http.ResponseWriter, r *http.Request, account *doorman.Account) error {
	pair, err := secure.GenerateProof()
	if err != nil {
		return fmt.Errorf("generating integrity proof: %w", err)
	}

	sess := s.session(w, r)
	if err := sess.Start(); err != nil {
		return err
	}
	sess.Clear()
	if err := sess.RenewID(); err != nil {
		return err
	}
	sess.Set(session.KeyIntegrityToken, pair.Token)
	sess.Set(session.KeyAccountID, account.ID)
	sess.Set(session.KeyAccountRole, strconv.Itoa(int(account.Role)))
	if err := sess.Close(); err != nil {
		return err
	}

	s.writeIntegrityCookie(w, r, pair.CookieProof)
	return nil
}

// LoggedInAccount returns the currently authenticated account, or
// (nil, nil) when nobody is logged in. A session whose integrity token
// does not match the integrity cookie, or whose account no longer
// exists, is destroyed on the spot: a mismatch means tampering or a
// stale hijacked session, and fail-closed is the only safe answer.
// A non-nil error indicates an infrastructure fault, not an
// authentication decision.
func (s *Service) LoggedInAccount(w http.ResponseWriter, r *http.Request) (*doorman.Account, error) {
	sess := s.session(w, r)
	if err := sess.Start(); err != nil {
		return nil, err
	}

	integrity := guard.NewTokenGuard(sess.Get(session.KeyIntegrityToken), s.IntegrityCookieName())
	if !integrity.Verify(w, r) {
		if err := sess.Destroy(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	accountID := sess.Get(session.KeyAccountID)
	account, err := s.accounts.FindByID(r.Context(), accountID)
	if errors.Is(err, store.ErrNotFound) {
		if err := sess.Destroy(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := sess.Close(); err != nil {
		return nil, err
	}
	return account, nil
}

// LoggedInRole reads the authenticated role from the session without
// any side effect beyond opening and closing it. The second return is
// false when no role is stored.
func (s *Service) LoggedInRole(w http.ResponseWriter, r *http.Request) (doorman.Role, bool) {
	sess := s.session(w, r)
	if err := sess.Start(); err != nil {
		return doorman.RoleNone, false
	}
	raw := sess.Get(session.KeyAccountRole)
	_ = sess.Close()
	if raw == "" {
		return doorman.RoleNone, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return doorman.RoleNone, false
	}
	return doorman.Role(n), true
}

// CreateSession is a thin wrapper over EstablishSessionIntegrity.
func (s *Service) CreateSession(w http.ResponseWriter, r *http.Request, account *doorman.Account) error {
	return s.EstablishSessionIntegrity(w, r, account)
}

// DeleteSession destroys the session and expires the integrity cookie.
func (s *Service) DeleteSession(w http.ResponseWriter, r *http.Request) error {
	sess := s.session(w, r)
	if err := sess.Start(); err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		return err
	}
	s.clearIntegrityCookie(w, r)
	return nil
}

func (s *Service) writeIntegrityCookie(w http.ResponseWriter, r *http.Request, proof string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.IntegrityCookieName(),
		Value:    proof,
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) clearIntegrityCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.IntegrityCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
