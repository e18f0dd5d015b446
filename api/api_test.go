package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/account"
	"github.com/dverhagen/doorman/remember"
	"github.com/dverhagen/doorman/secure"
	"github.com/dverhagen/doorman/session"
	"github.com/dverhagen/doorman/store/memory"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "hunter2"
)

type testEnv struct {
	router   chi.Router
	accounts *memory.AccountStore
	svc      *account.Service
	mgr      *remember.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := session.NewMemoryBackend()
	t.Cleanup(backend.Close)

	accounts := memory.NewAccountStore()
	credentials := memory.NewCredentialStore()
	svc := account.NewService(backend, accounts, account.Config{})
	mgr := remember.NewManager(credentials, remember.Config{})
	a := New(svc, mgr, accounts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	hash, err := secure.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(context.Background(), &doorman.Account{
		ID:           "a1",
		Email:        testEmail,
		PasswordHash: hash,
		DisplayName:  "Alice",
		Role:         doorman.RoleEditor,
		ActivatedAt:  time.Now(),
	}))

	return &testEnv{router: a.Router(), accounts: accounts, svc: svc, mgr: mgr}
}

// client simulates a browser: it carries cookies between requests and
// honors deletions.
type client struct {
	env     *testEnv
	cookies map[string]string
}

func newClient(env *testEnv) *client {
	return &client{env: env, cookies: make(map[string]string)}
}

func (c *client) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("User-Agent", "test-agent")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	for name, value := range c.cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, r)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie.Value
	}
	return w
}

func (c *client) login(t *testing.T, rememberMe bool) *httptest.ResponseRecorder {
	t.Helper()
	return c.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Email:    testEmail,
		Password: testPassword,
		Remember: rememberMe,
	}, nil)
}

func (c *client) csrfToken(t *testing.T) string {
	t.Helper()
	w := c.do(t, http.MethodGet, "/auth/csrf", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp CSRFTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	w := c.login(t, false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a1", resp.ID)
	assert.Equal(t, testEmail, resp.Email)
	assert.Equal(t, "editor", resp.Role)
	assert.NotContains(t, w.Body.String(), "password", "hash must never leave the server")

	assert.Contains(t, c.cookies, env.svc.SessionCookieName())
	assert.Contains(t, c.cookies, env.svc.IntegrityCookieName())
	assert.NotContains(t, c.cookies, env.mgr.CookieName(), "no persistent login unless asked")

	// Last login was recorded.
	acct, err := env.accounts.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, acct.LastLoginAt.IsZero())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	w := c.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: testEmail, Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown account and wrong password are indistinguishable.
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid credentials", resp.Error)
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	w := c.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: testEmail}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodPost, "/auth/login", LoginRequest{Password: testPassword}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_NotActivated(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	hash, err := secure.HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, env.accounts.Save(context.Background(), &doorman.Account{
		ID:           "a2",
		Email:        "pending@example.com",
		PasswordHash: hash,
	}))

	w := c.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: "pending@example.com", Password: "secret"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWhoAmI(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	w := c.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c.login(t, false)

	w = c.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a1", resp.ID)
}

func TestLogout_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)
	c.login(t, false)

	// A session cookie without the double-submit header is refused.
	w := c.do(t, http.MethodPost, "/auth/logout", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Still logged in.
	w = c.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_WithCSRF(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)
	c.login(t, true)
	token := c.csrfToken(t)

	w := c.do(t, http.MethodPost, "/auth/logout", nil, map[string]string{"X-CSRF-Token": token})
	require.Equal(t, http.StatusOK, w.Code)

	// Session, integrity, remember, and CSRF cookies are all gone.
	assert.NotContains(t, c.cookies, env.svc.SessionCookieName())
	assert.NotContains(t, c.cookies, env.svc.IntegrityCookieName())
	assert.NotContains(t, c.cookies, env.mgr.CookieName())

	w = c.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_WrongCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)
	c.login(t, false)
	c.csrfToken(t)

	w := c.do(t, http.MethodPost, "/auth/logout", nil, map[string]string{"X-CSRF-Token": "forged"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWhoAmI_RestoresFromPersistentLogin(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)
	c.login(t, true)

	rememberName := env.mgr.CookieName()
	oldRemember := c.cookies[rememberName]
	require.NotEmpty(t, oldRemember)

	// Simulate session expiry: only the remember cookie survives.
	delete(c.cookies, env.svc.SessionCookieName())
	delete(c.cookies, env.svc.IntegrityCookieName())

	w := c.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a1", resp.ID)

	// A fresh session was established and the credential rotated.
	assert.Contains(t, c.cookies, env.svc.SessionCookieName())
	assert.NotEqual(t, oldRemember, c.cookies[rememberName])

	// The pre-rotation cookie value is dead.
	stale := newClient(env)
	stale.cookies[rememberName] = oldRemember
	w = stale.do(t, http.MethodGet, "/auth/whoami", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWhoAmI_RememberCookieFromOtherClientDenied(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)
	c.login(t, true)

	stolen := c.cookies[env.mgr.CookieName()]
	require.NotEmpty(t, stolen)

	// Replay from a different client: User-Agent differs, so the client
	// signature does not match.
	r := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	r.Header.Set("User-Agent", "attacker-agent")
	r.AddCookie(&http.Cookie{Name: env.mgr.CookieName(), Value: stolen})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCSRFToken_SetsProofCookie(t *testing.T) {
	env := newTestEnv(t)
	c := newClient(env)

	w := c.do(t, http.MethodGet, "/auth/csrf", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CSRFTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	proof, ok := c.cookies["doorman_csrf"]
	require.True(t, ok)
	assert.True(t, secure.VerifyProof(resp.Token, proof))
	assert.NotEqual(t, resp.Token, proof, "cookie must not carry the raw token")
}
