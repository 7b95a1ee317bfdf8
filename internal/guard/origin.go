package guard

import (
	"net/http"
	"net/url"
)

// OriginGuard rejects state-changing cross-origin requests. Safe methods
// pass unconditionally; everything else must present an Origin header, or
// failing that a Referer, whose origin is on the allow-list.
type OriginGuard struct {
	allowed map[string]struct{}
}

// NewOriginGuard creates an OriginGuard for the given allowed origins,
// each of the form scheme://host[:port].
func NewOriginGuard(origins []string) *OriginGuard {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &OriginGuard{allowed: allowed}
}

// Middleware applies the origin check.
func (g *OriginGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = refererOrigin(r.Header.Get("Referer"))
		}

		if _, ok := g.allowed[origin]; !ok {
			http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// refererOrigin reduces a Referer URL to its scheme://host origin.
// Returns "" when the header is absent or unparseable, which the caller
// treats as not allow-listed.
func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
