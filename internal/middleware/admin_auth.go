package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/reviewcash/backend/internal/token"
)

type contextKey string

const ctxAdminKey contextKey = "admin"

// TokenVerifier is the token service interface used by admin auth.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Identity, error)
}

// AdminAuth gates the administrative endpoints. The token arrives either
// as a ?token= query parameter (panel links minted by the bot) or as an
// Authorization: Bearer header. Missing tokens are unauthorized, bad or
// unrecognized ones forbidden, and expired ones unauthorized with a
// distinguishable reason so the client can ask the bot for a fresh link.
func AdminAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				http.Error(w, `{"error":"missing admin token"}`, http.StatusUnauthorized)
				return
			}

			identity, err := verifier.Verify(raw)
			if err != nil {
				switch {
				case errors.Is(err, token.ErrExpired):
					http.Error(w, `{"error":"token expired","reason":"token_expired"}`, http.StatusUnauthorized)
				default:
					http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				}
				return
			}

			ctx := context.WithValue(r.Context(), ctxAdminKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromCtx returns the verified administrator identity or nil.
func AdminFromCtx(ctx context.Context) *token.Identity {
	id, _ := ctx.Value(ctxAdminKey).(*token.Identity)
	return id
}

// WithAdmin returns a context carrying the given identity.
func WithAdmin(ctx context.Context, id *token.Identity) context.Context {
	return context.WithValue(ctx, ctxAdminKey, id)
}

func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
