package guard

import (
	"net/http"

	"github.com/dverhagen/doorman"
)

// AccountSource reports the currently authenticated account. It is
// implemented by account.Service.
type AccountSource interface {
	LoggedInAccount(w http.ResponseWriter, r *http.Request) (*doorman.Account, error)
	LoggedInRole(w http.ResponseWriter, r *http.Request) (doorman.Role, bool)
}

// SessionGuard allows requests from authenticated accounts, optionally
// requiring a minimum role. doorman.RoleNone as the minimum means any
// authenticated account passes.
type SessionGuard struct {
	accounts AccountSource
	minRole  doorman.Role
}

var _ Guard = SessionGuard{}

// NewSessionGuard creates a guard requiring an authenticated account
// with at least the given role.
func NewSessionGuard(accounts AccountSource, minRole doorman.Role) SessionGuard {
	return SessionGuard{accounts: accounts, minRole: minRole}
}

func (g SessionGuard) Verify(w http.ResponseWriter, r *http.Request) bool {
	account, err := g.accounts.LoggedInAccount(w, r)
	if err != nil || account == nil {
		return false
	}
	if g.minRole == doorman.RoleNone {
		return true
	}
	role, ok := g.accounts.LoggedInRole(w, r)
	if !ok {
		return false
	}
	return role.AtLeast(g.minRole)
}
