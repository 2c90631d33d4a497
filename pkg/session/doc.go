// Package session keeps server-side sessions in Redis and serves the
// establish-session and sign-out endpoints.
//
// The browser only ever holds an opaque, HttpOnly session id cookie. The
// provider tokens behind it live in Redis under "session:<id>" and expire
// with the cookie.
//
//	store := session.NewRedisStore(redisClient, 7*24*time.Hour)
//	h := session.NewHandlers(identityClient, store, session.CookieConfig{Name: "ts_session"}, logger)
//	h.RegisterRoutes(router)
package session
