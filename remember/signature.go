package remember

import (
	"crypto/sha256"
	"net/http"

	"github.com/dverhagen/doorman/internal/httpinfo"
	"github.com/dverhagen/doorman/internal/util"
)

// Signature fingerprints the requesting client as a hash of its IP
// address and User-Agent. It binds a credential to the device/network
// context it was issued on — a cheap anti-replay heuristic, not an
// identity guarantee.
func Signature(r *http.Request) string {
	sum := sha256.Sum256([]byte(httpinfo.ClientIP(r) + "|" + httpinfo.UserAgent(r)))
	return util.HexEncode(sum[:])
}
