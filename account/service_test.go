package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dverhagen/doorman"
	"github.com/dverhagen/doorman/session"
	"github.com/dverhagen/doorman/store/memory"
)

func newService(t *testing.T) (*Service, *memory.AccountStore, *session.MemoryBackend) {
	t.Helper()
	backend := session.NewMemoryBackend()
	t.Cleanup(backend.Close)
	accounts := memory.NewAccountStore()
	return NewService(backend, accounts, Config{}), accounts, backend
}

func testAccount() *doorman.Account {
	return &doorman.Account{
		ID:          "a1",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Role:        doorman.RoleEditor,
		ActivatedAt: time.Now(),
	}
}

// login establishes an authenticated session and returns the cookies a
// browser would carry afterwards.
func login(t *testing.T, svc *Service, account *doorman.Account) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, svc.EstablishSessionIntegrity(w, r, account))
	return w.Result().Cookies()
}

func withCookies(r *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		if c.MaxAge < 0 {
			continue
		}
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestEstablishSessionIntegrity_SetsBothCookies(t *testing.T) {
	svc, accounts, _ := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)

	sess := cookieNamed(cookies, svc.SessionCookieName())
	require.NotNil(t, sess)
	assert.True(t, sess.HttpOnly)

	integrity := cookieNamed(cookies, svc.IntegrityCookieName())
	require.NotNil(t, integrity)
	assert.True(t, integrity.HttpOnly)
	assert.NotEmpty(t, integrity.Value)
}

func TestEstablishSessionIntegrity_RenewsSessionID(t *testing.T) {
	svc, accounts, backend := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	// Simulate a pre-login session, e.g. a shopping cart.
	w0 := httptest.NewRecorder()
	r0 := httptest.NewRequest(http.MethodGet, "/", nil)
	pre := session.New(w0, r0, backend, session.Config{CookieName: svc.SessionCookieName(), TTL: time.Hour})
	require.NoError(t, pre.Start())
	pre.Set("cart", "3 items")
	require.NoError(t, pre.Close())
	preID := pre.ID()

	w1 := httptest.NewRecorder()
	r1 := withCookies(httptest.NewRequest(http.MethodPost, "/login", nil), w0.Result().Cookies())
	require.NoError(t, svc.EstablishSessionIntegrity(w1, r1, account))

	sessCookie := cookieNamed(w1.Result().Cookies(), svc.SessionCookieName())
	require.NotNil(t, sessCookie)
	assert.NotEqual(t, preID, sessCookie.Value, "login must not reuse the pre-login session ID")

	// The pre-login record is gone, and pre-login state did not carry
	// into the authenticated session.
	_, err := backend.Load(context.Background(), preID)
	assert.ErrorIs(t, err, session.ErrNoSession)

	values, err := backend.Load(context.Background(), sessCookie.Value)
	require.NoError(t, err)
	assert.NotContains(t, values, "cart")
	assert.Equal(t, "a1", values[session.KeyAccountID])
}

func TestLoggedInAccount_RoundTrip(t *testing.T) {
	svc, accounts, _ := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)

	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodGet, "/whoami", nil), cookies)
	got, err := svc.LoggedInAccount(w, r)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestLoggedInAccount_NoSession(t *testing.T) {
	svc, _, _ := newService(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	got, err := svc.LoggedInAccount(w, r)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoggedInAccount_TamperedIntegrityCookieDestroysSession(t *testing.T) {
	svc, accounts, backend := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)
	sessCookie := cookieNamed(cookies, svc.SessionCookieName())
	require.NotNil(t, sessCookie)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.AddCookie(&http.Cookie{Name: svc.SessionCookieName(), Value: sessCookie.Value})
	r.AddCookie(&http.Cookie{Name: svc.IntegrityCookieName(), Value: "deadbeef"})

	got, err := svc.LoggedInAccount(w, r)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Fail closed: the backing session record is destroyed, so even the
	// correct integrity cookie cannot resurrect it.
	_, err = backend.Load(context.Background(), sessCookie.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoggedInAccount_MissingIntegrityCookieDestroysSession(t *testing.T) {
	svc, accounts, backend := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)
	sessCookie := cookieNamed(cookies, svc.SessionCookieName())
	require.NotNil(t, sessCookie)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.AddCookie(&http.Cookie{Name: svc.SessionCookieName(), Value: sessCookie.Value})

	got, err := svc.LoggedInAccount(w, r)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = backend.Load(context.Background(), sessCookie.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoggedInAccount_DeletedAccountDestroysSession(t *testing.T) {
	svc, accounts, backend := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)
	sessCookie := cookieNamed(cookies, svc.SessionCookieName())
	require.NotNil(t, sessCookie)

	require.NoError(t, accounts.Delete(context.Background(), "a1"))

	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodGet, "/whoami", nil), cookies)
	got, err := svc.LoggedInAccount(w, r)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = backend.Load(context.Background(), sessCookie.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoggedInRole(t *testing.T) {
	svc, accounts, _ := newService(t)
	account := testAccount()
	account.Role = doorman.RoleAdmin
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)

	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies)
	role, ok := svc.LoggedInRole(w, r)
	assert.True(t, ok)
	assert.Equal(t, doorman.RoleAdmin, role)
}

func TestLoggedInRole_NoSession(t *testing.T) {
	svc, _, _ := newService(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	role, ok := svc.LoggedInRole(w, r)
	assert.False(t, ok)
	assert.Equal(t, doorman.RoleNone, role)
}

func TestDeleteSession(t *testing.T) {
	svc, accounts, backend := newService(t)
	account := testAccount()
	require.NoError(t, accounts.Save(context.Background(), account))

	cookies := login(t, svc, account)
	sessCookie := cookieNamed(cookies, svc.SessionCookieName())
	require.NotNil(t, sessCookie)

	w := httptest.NewRecorder()
	r := withCookies(httptest.NewRequest(http.MethodPost, "/logout", nil), cookies)
	require.NoError(t, svc.DeleteSession(w, r))

	// Backing record gone, both cookies expired.
	_, err := backend.Load(context.Background(), sessCookie.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)

	out := w.Result().Cookies()
	expiredSess := cookieNamed(out, svc.SessionCookieName())
	require.NotNil(t, expiredSess)
	assert.Less(t, expiredSess.MaxAge, 0)
	expiredIntegrity := cookieNamed(out, svc.IntegrityCookieName())
	require.NotNil(t, expiredIntegrity)
	assert.Less(t, expiredIntegrity.MaxAge, 0)

	// And the user is logged out.
	w2 := httptest.NewRecorder()
	r2 := withCookies(httptest.NewRequest(http.MethodGet, "/whoami", nil), cookies)
	got, err := svc.LoggedInAccount(w2, r2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCookieNames_UsePrefix(t *testing.T) {
	backend := session.NewMemoryBackend()
	defer backend.Close()
	svc := NewService(backend, memory.NewAccountStore(), Config{CookiePrefix: "custom"})

	assert.Equal(t, "custom_session", svc.SessionCookieName())
	assert.Equal(t, "custom_integrity", svc.IntegrityCookieName())
}
