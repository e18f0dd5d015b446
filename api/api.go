// Package api exposes the authentication core over HTTP: login,
// logout, current-account lookup, and CSRF token issuance. It is the
// status-code boundary — the core packages return typed results and
// this package maps them to responses.
package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/dverhagen/doorman/account"
	"github.com/dverhagen/doorman/guard"
	"github.com/dverhagen/doorman/remember"
	"github.com/dverhagen/doorman/store"
)

const csrfHeaderName = "X-CSRF-Token"

// API holds the dependencies needed by the HTTP handlers.
type API struct {
	accounts *account.Service
	remember *remember.Manager
	storage  store.AccountStore
	audit    *auditLogger

	csrfCookieName string
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events. If not set,
// a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithCSRFCookieName overrides the CSRF cookie name.
func WithCSRFCookieName(name string) Option {
	return func(a *API) {
		a.csrfCookieName = name
	}
}

// New creates a new API instance.
func New(accounts *account.Service, rememberMgr *remember.Manager, accountStore store.AccountStore, opts ...Option) *API {
	a := &API{
		accounts:       accounts,
		remember:       rememberMgr,
		storage:        accountStore,
		csrfCookieName: account.DefaultCookiePrefix + "_csrf",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns the authentication routes. Mutating endpoints that
// run under a cookie session are CSRF-protected with the
// double-submit header guard.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/login", a.Login)
	r.Get("/auth/csrf", a.CSRFToken)
	r.Get("/auth/whoami", a.WhoAmI)
	r.Group(func(r chi.Router) {
		r.Use(a.csrfMiddleware)
		r.Post("/auth/logout", a.Logout)
	})
	return r
}

// csrfMiddleware enforces the double-submit check for requests that
// carry a session cookie. Requests without one are either anonymous or
// header-authenticated; cross-origin callers cannot set custom
// headers, so those are immune to CSRF.
func (a *API) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(a.accounts.SessionCookieName()); err != nil {
			next.ServeHTTP(w, r)
			return
		}
		g := guard.NewHeaderTokenGuard(csrfHeaderName, a.csrfCookieName)
		if !g.Verify(w, r) {
			writeError(w, http.StatusForbidden, "invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
