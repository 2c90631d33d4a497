package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/platinummonkey/teamsites/pkg/httputil"
)

// Origins guards state-changing requests against cross-site submissions.
// The server's own origin is always allowed; extra origins come from the
// config file and can be swapped at runtime.
type Origins struct {
	self    string
	allowed atomic.Pointer[map[string]struct{}]
}

// NewOrigins creates a guard for the server at baseURL
func NewOrigins(baseURL string, extra ...string) *Origins {
	o := &Origins{self: normalizeOrigin(baseURL)}
	o.Set(extra)
	return o
}

// Set replaces the configured origins
func (o *Origins) Set(extra []string) {
	set := make(map[string]struct{}, len(extra)+1)
	if o.self != "" {
		set[o.self] = struct{}{}
	}
	for _, origin := range extra {
		if origin = normalizeOrigin(origin); origin != "" {
			set[origin] = struct{}{}
		}
	}
	o.allowed.Store(&set)
}

// Allowed reports whether origin may submit to the server. Requests without
// an Origin header (server-to-server, old browsers) are allowed.
func (o *Origins) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := (*o.allowed.Load())[normalizeOrigin(origin)]
	return ok
}

// Handler rejects unsafe methods from foreign origins with 403
func (o *Origins) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !o.Allowed(r.Header.Get("Origin")) {
				httputil.WriteForbidden(w, "Origin not allowed")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
