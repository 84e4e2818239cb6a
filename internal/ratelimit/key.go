package ratelimit

import (
	"net/http"
	"net/netip"
	"strings"
)

// clientKey names the budget a request is charged to. Behind a trusted
// proxy that is X-Real-IP, else the rightmost public X-Forwarded-For hop;
// otherwise the connection's own address.
func (l *Limiter) clientKey(r *http.Request) string {
	if l.config.TrustProxy {
		if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return addr.String()
		}
		if addr, ok := forwardedClient(r.Header.Values("X-Forwarded-For")); ok {
			return addr.String()
		}
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

// forwardedClient walks the hops right to left. Hops our own network added
// are skipped; when every hop is internal the nearest one is used.
func forwardedClient(headers []string) (netip.Addr, bool) {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}
	var nearest netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseAddr(hops[i])
		if !ok {
			continue
		}
		if !internal(addr) {
			return addr, true
		}
		if !nearest.IsValid() {
			nearest = addr
		}
	}
	return nearest, nearest.IsValid()
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func internal(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
