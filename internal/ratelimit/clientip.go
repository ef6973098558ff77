package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP derives the rate-limit key for a request. With trustProxy it
// prefers the first X-Forwarded-For entry, then X-Real-IP. Those headers are
// client-controlled, so only trust them behind a proxy that overwrites them.
// Otherwise the remote address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
