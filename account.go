package doorman

import "time"

// Role is an ordered privilege level. Larger values grant strictly more
// access, so a minimum-role check is a simple ordinal comparison.
type Role int

const (
	RoleNone   Role = 0
	RoleEditor Role = 10
	RoleAdmin  Role = 20
)

// AtLeast reports whether the role satisfies the given minimum.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func (r Role) String() string {
	switch r {
	case RoleEditor:
		return "editor"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Account is a user account as seen by the authentication layer.
// Persistence is delegated to a store.AccountStore; this package only
// defines the shape.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	ActivatedAt  time.Time `json:"activated_at,omitempty"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
}

// Activated reports whether the account has completed activation.
// Accounts provisioned by an external identity source may carry an
// empty PasswordHash but are still activated.
func (a *Account) Activated() bool {
	return !a.ActivatedAt.IsZero()
}
