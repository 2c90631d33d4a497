// Package auth defines the signed-in user, team roles, and the request-scoped
// AuthContext set by the session middleware.
//
//	user := auth.UserFromContext(r.Context())
//	if user == nil {
//		httputil.WriteUnauthorized(w, "Not signed in")
//		return
//	}
package auth
