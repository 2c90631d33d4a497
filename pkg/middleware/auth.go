package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/httputil"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/session"
)

// SessionLookup loads server-side sessions by id
type SessionLookup interface {
	Get(ctx context.Context, id string) (*session.Record, error)
}

// Session resolves the session cookie into an auth context. Requests
// without a valid session continue anonymously.
func Session(store SessionLookup, cookieName string, logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			record, err := store.Get(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					logger.WithError(err).Warn("Session lookup failed")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.NewContext(r.Context(), &auth.AuthContext{
				User:        record.User(),
				SessionID:   record.ID,
				AccessToken: record.AccessToken,
			})
			ctx = observability.WithUserID(ctx, record.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a signed-in user
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthContext(r) == nil {
			httputil.WriteUnauthorized(w, "Not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAuthContext extracts the auth context from the request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil || authCtx.User == nil {
		return nil
	}
	return authCtx
}
