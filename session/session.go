// Package session implements the server-side session: a key-value
// record in a Backend, keyed by a random session ID delivered to the
// client in an HttpOnly cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dverhagen/doorman/internal/httpinfo"
	"github.com/dverhagen/doorman/secure"
)

// Keys stored in the session by the account service.
const (
	KeyIntegrityToken = "INTEGRITY_TOKEN"
	KeyAccountID      = "ACCOUNT_ID"
	KeyAccountRole    = "ACCOUNT_ROLE"
)

// ErrNoSession is returned by Backend.Load when no session exists for
// the given ID (never stored, expired, or destroyed).
var ErrNoSession = errors.New("no such session")

// Backend is the process-external store holding session data.
// Implementations must be safe for concurrent use.
type Backend interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Config controls the session cookie and lifetime.
type Config struct {
	// CookieName is the name of the session ID cookie.
	CookieName string
	// TTL is how long a session record lives in the backend and how
	// long the cookie is valid. Zero means DefaultTTL.
	TTL time.Duration
}

// DefaultTTL is the session lifetime used when Config.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Session binds one request/response pair to a Backend record. The
// lifecycle is Start → Get/Set/Clear/RenewID → Close (persist) or
// Destroy (discard). A Session is single-request, single-goroutine
// state; cross-request safety is the Backend's job.
type Session struct {
	w       http.ResponseWriter
	r       *http.Request
	backend Backend
	cfg     Config

	id      string
	values  map[string]string
	started bool
	isNew   bool
}

// New creates a Session for the given request. Nothing is read or
// written until Start.
func New(w http.ResponseWriter, r *http.Request, backend Backend, cfg Config) *Session {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Session{w: w, r: r, backend: backend, cfg: cfg}
}

// Start opens the session: if the request carries a valid session ID
// cookie with a live backend record, that record is loaded; otherwise a
// fresh session ID is generated. Only infrastructure faults return an
// error — a missing or bogus cookie just means a new session.
func (s *Session) Start() error {
	if s.started {
		return nil
	}
	if cookie, err := s.r.Cookie(s.cfg.CookieName); err == nil && validSessionID(cookie.Value) {
		values, err := s.backend.Load(s.r.Context(), cookie.Value)
		if err == nil {
			s.id = cookie.Value
			s.values = values
			s.started = true
			return nil
		}
		if !errors.Is(err, ErrNoSession) {
			return fmt.Errorf("loading session: %w", err)
		}
	}
	id, err := secure.GenerateToken(secure.TokenBytes)
	if err != nil {
		return fmt.Errorf("generating session id: %w", err)
	}
	s.id = id
	s.values = make(map[string]string)
	s.started = true
	s.isNew = true
	return nil
}

// ID returns the current session identifier.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key, or "" when absent.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Set stores a value under key. It only takes effect in the backend
// once Close is called.
func (s *Session) Set(key, value string) {
	s.values[key] = value
}

// Clear removes all values from the session.
func (s *Session) Clear() {
	s.values = make(map[string]string)
}

// RenewID discards the current session identifier and generates a
// fresh one, deleting the old backend record. Renewing the ID at login
// is mandatory: it stops a pre-login (possibly attacker-chosen)
// identifier from surviving into the authenticated session.
func (s *Session) RenewID() error {
	if !s.isNew {
		if err := s.backend.Delete(s.r.Context(), s.id); err != nil && !errors.Is(err, ErrNoSession) {
			return fmt.Errorf("deleting old session: %w", err)
		}
	}
	id, err := secure.GenerateToken(secure.TokenBytes)
	if err != nil {
		return fmt.Errorf("generating session id: %w", err)
	}
	s.id = id
	s.isNew = true
	return nil
}

// Close persists the session to the backend and, when the session ID is
// new, sets the session cookie.
func (s *Session) Close() error {
	if !s.started {
		return nil
	}
	if err := s.backend.Save(s.r.Context(), s.id, s.values, s.cfg.TTL); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if s.isNew {
		s.writeCookie(s.id, time.Now().Add(s.cfg.TTL))
		s.isNew = false
	}
	s.started = false
	return nil
}

// Destroy deletes the backend record and expires the session cookie.
// The session instance is unusable afterwards; a new login creates a
// fresh one.
func (s *Session) Destroy() error {
	if !s.started {
		return nil
	}
	err := s.backend.Delete(s.r.Context(), s.id)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return fmt.Errorf("destroying session: %w", err)
	}
	s.writeCookie("", time.Unix(0, 0))
	s.values = make(map[string]string)
	s.started = false
	return nil
}

func (s *Session) writeCookie(value string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   httpinfo.RequestIsSecure(s.r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(s.w, cookie)
}

// validSessionID accepts only IDs this package could have generated:
// 64 lowercase hex characters. Anything else in the cookie is
// attacker-supplied noise.
func validSessionID(id string) bool {
	if len(id) != 2*secure.TokenBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
