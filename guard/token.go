package guard

import (
	"net/http"

	"github.com/dverhagen/doorman/secure"
)

// TokenGuard implements the double-submit-cookie check: a token
// supplied with the request must match the obfuscated proof stored in
// the named cookie. The server keeps no expected value; it relies on a
// cross-origin attacker being unable to read or set the victim's
// cookie.
type TokenGuard struct {
	token      string
	cookieName string
}

var _ Guard = TokenGuard{}

// NewTokenGuard creates a guard for an already-extracted token, e.g.
// one read from the session.
func NewTokenGuard(token, cookieName string) TokenGuard {
	return TokenGuard{token: token, cookieName: cookieName}
}

func (g TokenGuard) Verify(_ http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return secure.VerifyProof(g.token, cookie.Value)
}

// FormTokenGuard verifies a token submitted in a named form field.
type FormTokenGuard struct {
	field      string
	cookieName string
}

var _ Guard = FormTokenGuard{}

// NewFormTokenGuard creates a guard reading the token from the given
// POST form field.
func NewFormTokenGuard(field, cookieName string) FormTokenGuard {
	return FormTokenGuard{field: field, cookieName: cookieName}
}

func (g FormTokenGuard) Verify(w http.ResponseWriter, r *http.Request) bool {
	return NewTokenGuard(r.PostFormValue(g.field), g.cookieName).Verify(w, r)
}

// HeaderTokenGuard verifies a token submitted in a named request
// header.
type HeaderTokenGuard struct {
	header     string
	cookieName string
}

var _ Guard = HeaderTokenGuard{}

// NewHeaderTokenGuard creates a guard reading the token from the given
// request header.
func NewHeaderTokenGuard(header, cookieName string) HeaderTokenGuard {
	return HeaderTokenGuard{header: header, cookieName: cookieName}
}

func (g HeaderTokenGuard) Verify(w http.ResponseWriter, r *http.Request) bool {
	return NewTokenGuard(r.Header.Get(g.header), g.cookieName).Verify(w, r)
}
