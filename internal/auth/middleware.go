package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey struct{}

// LocalScope is the implicit owner scope used when the server runs without
// authentication (single-user mode).
const LocalScope = "local"

// WithScope returns a context carrying the owner scope.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, ctxKey{}, scope)
}

// ScopeFrom extracts the owner scope, defaulting to LocalScope.
func ScopeFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKey{}).(string); ok && s != "" {
		return s
	}
	return LocalScope
}

// Middleware requires a valid bearer token and injects the token's user id
// as the request's owner scope. A nil verifier disables authentication and
// every request runs under LocalScope.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), LocalScope)))
				return
			}

			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			sess, err := v.Verify(token)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), sess.UserID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
