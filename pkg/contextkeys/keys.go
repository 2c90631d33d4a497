// Package contextkeys provides centralized context key definitions
//
// All context keys shared between packages are defined here so that the
// middleware that sets a value and the handler that reads it agree on one key.
//
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.Session (pkg/middleware/auth.go)
	// Required by: dashboard API handlers behind middleware.RequireAuth
	AuthKey Key = "auth_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, distributed tracing
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.Session after the session resolves
	// Used by: Logger
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.Logger
	// Used by: Handlers that need structured logging with request context
	LoggerKey Key = "logger"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}
