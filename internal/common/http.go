package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address used for rate limit keys. The first valid entry of
// X-Forwarded-For wins, then X-Real-IP, then the connection address. Values that do not
// parse as an IP are skipped so a forged header cannot produce arbitrary keys.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, ok := parseIP(candidate); ok {
			return ip
		}
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	if ip, ok := parseIP(r.RemoteAddr); ok {
		return ip
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func parseIP(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	addr, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
