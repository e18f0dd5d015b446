// Package guard provides request authorization predicates with a
// single Verify contract. A guard answers one question — may this
// request proceed — and never decides the HTTP response; the Require
// middleware maps a failed guard to 403.
package guard

import "net/http"

// Guard is a request authorization predicate. Verify must treat every
// failure mode, including malformed attacker-controlled input, as a
// denial — never a panic.
type Guard interface {
	Verify(w http.ResponseWriter, r *http.Request) bool
}
