package handlers

import (
	"net/http"
	"net/netip"
	"strings"
)

// RateLimiter is the minimal interface required to guard write endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// allowWrite enforces POST and the per-client rate limit for scope.
func allowWrite(w http.ResponseWriter, r *http.Request, limiter RateLimiter, scope string) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if limiter != nil && !limiter.Allow(scope+":"+clientIP(r)) {
		respondJSON(r.Context(), w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return false
	}
	return true
}

// clientIP prefers the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		if addr, err := netip.ParseAddr(real); err == nil {
			return addr.String()
		}
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().String()
	}
	return strings.TrimSpace(r.RemoteAddr)
}
