package secure

import "github.com/dverhagen/doorman/internal/util"

// TokenPair is a CSRF token and its cookie-bound proof. Token travels
// with the request (form field, header, or session); CookieProof is
// stored client-side in a cookie.
//
// CookieProof is an obfuscated bcrypt hash of Token. The hash is the
// security boundary: knowing the proof does not allow forging a
// matching token. The obfuscation only keeps a recognizable
// hash-shaped value out of the cookie jar.
type TokenPair struct {
	Token       string
	CookieProof string
}

// GenerateProof returns a fresh token and its cookie proof.
func GenerateProof() (TokenPair, error) {
	token, err := GenerateToken(TokenBytes)
	if err != nil {
		return TokenPair{}, err
	}
	hash, err := HashPassword(token)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Token: token, CookieProof: obfuscate(hash)}, nil
}

// VerifyProof reports whether token matches the cookie proof. All
// failure modes — empty inputs, malformed proof, hash mismatch — yield
// false; the proof is attacker-controlled and must never cause a
// panic or an error.
func VerifyProof(token, cookieProof string) bool {
	if token == "" || cookieProof == "" {
		return false
	}
	return VerifyPassword(token, deobfuscate(cookieProof))
}

// obfuscate reverses the bytes of s and hex-encodes the result.
func obfuscate(s string) string {
	b := []byte(s)
	reverseBytes(b)
	return util.HexEncode(b)
}

// deobfuscate undoes obfuscate. Malformed input (odd-length or non-hex)
// returns the empty string so that verification fails closed.
func deobfuscate(s string) string {
	b, err := util.HexDecode(s)
	if err != nil {
		return ""
	}
	reverseBytes(b)
	return string(b)
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
