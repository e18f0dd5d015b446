// Package httpinfo extracts client-facing request metadata: the peer
// IP address, the User-Agent string, and whether the request arrived
// over a secure channel.
package httpinfo

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the best-effort client IP address taken from the
// request's RemoteAddr. Proxy headers are deliberately not consulted:
// they are client-controlled unless the deployment fronts the server
// with a trusted proxy, and this library has no way to know that.
func ClientIP(r *http.Request) string {
	ip, _ := parseIPCandidate(r.RemoteAddr)
	return ip
}

// UserAgent returns the request's User-Agent header.
func UserAgent(r *http.Request) string {
	return r.UserAgent()
}

// RequestIsSecure reports whether the request arrived over HTTPS,
// either directly or via a TLS-terminating proxy.
func RequestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}

func parseIPCandidate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	// Remove IPv6 brackets if present.
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	// Drop zone if any (e.g. fe80::1%eth0).
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	return "", false
}
