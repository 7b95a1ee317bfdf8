package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/NatesHonor/apisite/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Gateway authenticates inbound requests from either a session cookie or
// an Authorization bearer header and attaches the resolved Principal to
// the request context. The cookie is tried first; the bearer header is a
// distinct audience (service-to-service callers) and is only consulted
// when no live session resolves.
type Gateway struct {
	sessions   *SessionStore
	tokens     *TokenManager
	cookieName string
}

// NewGateway creates a Gateway.
func NewGateway(sessions *SessionStore, tokens *TokenManager, cookieName string) *Gateway {
	return &Gateway{sessions: sessions, tokens: tokens, cookieName: cookieName}
}

// Middleware rejects requests carrying no valid credential material with
// 401. Signature and expiry failures are deliberately not distinguished.
// A session-store outage is not an authentication verdict and surfaces
// as 503 instead.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r)
		if err != nil {
			if errors.Is(err, ErrDependencyUnavailable) {
				http.Error(w, "service temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate resolves the request's credential material to a Principal,
// or returns ErrUnauthenticated. A store error on the cookie path is
// returned as-is: the session's validity is unknown, which is not the
// same as a missing or expired session.
func (g *Gateway) Authenticate(r *http.Request) (*Principal, error) {
	// Session cookie first: the browser audience.
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		session, err := g.sessions.Load(r.Context(), cookie.Value)
		if err != nil {
			return nil, err
		}
		if session != nil {
			// Refresh sliding expiry; a failed touch does not fail the request.
			_ = g.sessions.Touch(r.Context(), cookie.Value)
			return &Principal{
				ID:       session.UserID,
				Username: session.Username,
				Email:    session.Email,
				Role:     session.Role,
			}, nil
		}
	}

	// Bearer token second: the service-to-service audience.
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			claims, err := g.tokens.ValidateToken(parts[1])
			if err == nil {
				return &Principal{
					ID:       claims.UserID,
					Username: claims.Username,
					Email:    claims.Email,
					Role:     models.Role(claims.Role),
				}, nil
			}
		}
	}

	return nil, ErrUnauthenticated
}

// PrincipalFromContext retrieves the authenticated principal attached by
// the Gateway middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	return principal, ok
}

// RequireRole ensures the attached principal holds the given role.
// Authorization decisions beyond this comparison belong to the route
// owners, not the gateway.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if principal.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
