package secure

import "github.com/dverhagen/doorman/internal/util"

const (
	// TokenBytes is the size of a full-entropy token: CSRF proofs,
	// session integrity tokens, and remember-me validators.
	TokenBytes = 32
	// LookupKeyBytes is the size of a remember-me lookup key. It is
	// only an index into the credential table, not a secret, so 64
	// bits is plenty.
	LookupKeyBytes = 8
)

// GenerateToken returns byteLen cryptographically secure random bytes,
// hex-encoded (2*byteLen characters).
func GenerateToken(byteLen int) (string, error) {
	b, err := util.RandomBytes(byteLen)
	if err != nil {
		return "", err
	}
	return util.HexEncode(b), nil
}
