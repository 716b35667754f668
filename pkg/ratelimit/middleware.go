package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

// DefaultMessage is returned to clients over their limit
const DefaultMessage = "Too many requests, please try again later."

// Middleware limits requests per client key
type Middleware struct {
	store   Store
	keyFunc func(*http.Request) string
}

type Option func(*Middleware)

// WithKeyFunc overrides how requests are grouped. The default is the client IP.
func WithKeyFunc(fn func(*http.Request) string) Option {
	return func(m *Middleware) {
		m.keyFunc = fn
	}
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(store Store, opts ...Option) *Middleware {
	m := &Middleware{
		store:   store,
		keyFunc: ClientIP,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns the rate limiting middleware handler. When the store
// fails the request is let through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.keyFunc(r)
		res, err := m.store.Allow(r.Context(), key)
		if err != nil {
			slog.Error("Rate limit store failed", "key", key, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			slog.Warn("Rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			apperrors.WriteError(w, r, apperrors.New(apperrors.ErrCodeRateLimitExceeded, DefaultMessage))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are
// ignored; use TrustedProxyKey behind a reverse proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ParseTrustedProxies parses CIDRs or bare addresses
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// TrustedProxyKey keys requests by client IP when the direct peer is one of
// proxies. X-Forwarded-For is walked from the right and the first hop not in
// proxies is the client; X-Real-IP is used when there is no X-Forwarded-For.
// Requests from any other peer are keyed by ClientIP.
func TrustedProxyKey(proxies []netip.Prefix) func(*http.Request) string {
	trusted := func(raw string) bool {
		addr, err := netip.ParseAddr(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range proxies {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := ClientIP(r)
		if len(proxies) == 0 || !trusted(peer) {
			return peer
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop == "" {
					continue
				}
				if !trusted(hop) {
					if _, err := netip.ParseAddr(hop); err != nil {
						return peer
					}
					return hop
				}
			}
			return peer
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if _, err := netip.ParseAddr(xri); err == nil {
				return xri
			}
		}
		return peer
	}
}
