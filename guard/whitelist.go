package guard

import (
	"fmt"
	"net/http"
	"net/netip"

	"github.com/dverhagen/doorman/internal/httpinfo"
)

// WhitelistGuard allows requests whose client IPv4 address matches one
// of the configured addresses or falls inside one of the configured
// CIDR ranges. An empty whitelist denies everything, and non-IPv4
// callers are always denied.
type WhitelistGuard struct {
	prefixes []netip.Prefix
}

var _ Guard = WhitelistGuard{}

// NewWhitelistGuard parses entries as IPv4 addresses or IPv4 CIDR
// ranges. A bare address is treated as a /32.
func NewWhitelistGuard(entries ...string) (WhitelistGuard, error) {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			if !prefix.Addr().Is4() {
				return WhitelistGuard{}, fmt.Errorf("whitelist entry %q: not IPv4", entry)
			}
			prefixes = append(prefixes, prefix)
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return WhitelistGuard{}, fmt.Errorf("whitelist entry %q: %w", entry, err)
		}
		if !addr.Is4() {
			return WhitelistGuard{}, fmt.Errorf("whitelist entry %q: not IPv4", entry)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, 32))
	}
	return WhitelistGuard{prefixes: prefixes}, nil
}

func (g WhitelistGuard) Verify(_ http.ResponseWriter, r *http.Request) bool {
	if len(g.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(httpinfo.ClientIP(r))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return false
	}
	for _, prefix := range g.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
