// Package middleware adapts the authentication engine to net/http request
// handling: bearer extraction, identity injection, and role gating.
//
// # Guards
//
//   - [Guard] — authenticates when a token is present; anonymous otherwise.
//   - [Require] — rejects unauthenticated requests with 401.
//   - [RequireRole] — rejects authenticated requests lacking a role with 403.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. All token
// decisions are delegated to Engine.Authenticate; the guard only decides what
// an unauthenticated request is allowed to reach.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Distinguish rejection causes in responses; every failure is the same
//     401 body.
package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/keelworks/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity injected by a
// guard, or false for anonymous requests.
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return id, ok
}

// Guard authenticates the request when a bearer token is present and injects
// the identity into the context. Requests without a token, or with a token
// the engine rejects, proceed anonymously; handlers needing authentication
// wrap with [Require] instead.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := engine.Authenticate(r.Context(), tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require authenticates the request and rejects with 401 when no valid
// bearer token is presented.
func Require(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			identity, err := engine.Authenticate(r.Context(), tok)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole layers a role check over [Require]: 401 without
// authentication, 403 without the role.
func RequireRole(engine *authcore.Engine, role string) func(http.Handler) http.Handler {
	require := Require(engine)
	return func(next http.Handler) http.Handler {
		return require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !hasRole(identity, role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func hasRole(identity *authcore.Identity, role string) bool {
	for _, r := range identity.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}
	return tok, true
}
