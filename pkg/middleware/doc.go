// Package middleware provides the HTTP middleware shared by the dashboard,
// auth and public routes.
//
// Ordering (outer to inner):
//
//	router.Use(middleware.RequestID)
//	router.Use(middleware.Logger(logger))
//	router.Use(middleware.Recover(logger))
//	router.Use(middleware.Session(sessionStore, "ts_session", logger))
//
//	api := router.NewRoute().Subrouter()
//	api.Use(middleware.RequireAuth)
//
//	authRoutes.Use(limiter.Handler)
//
// Session resolves the session cookie into an *auth.AuthContext. It never
// rejects a request; RequireAuth does that for routes that need a user.
//
// RateLimiter counts requests per client IP in Redis with INCR and a window
// TTL. When Redis is unreachable it lets requests through.
package middleware
