package ipallow

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the original client address for admission checks.
// Preference order: X-Forwarded-For (first entry), X-Real-Ip, then the
// transport peer address. The IPv4-mapped IPv6 prefix is stripped so the
// result compares cleanly against an IPv4 allow-list.
func ClientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return normalize(v)
	}
	if v := r.Header.Get("X-Real-Ip"); v != "" {
		return normalize(v)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return normalize(host)
}

func normalize(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return StripMappedPrefix(strings.TrimSpace(first))
}
