package auth

import (
	"context"
	"strings"

	"github.com/platinummonkey/teamsites/pkg/contextkeys"
)

// User is an authenticated identity-provider account
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LocalPart returns the part of the email before '@', or the whole email
// when there is no '@'.
func (u User) LocalPart() string {
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Role represents a team-level role
type Role string

const (
	RoleOwner  Role = "owner"  // Can manage the team, invite, and delete sites
	RoleCoach  Role = "coach"  // Can edit site content
	RoleMember Role = "member" // Can edit site content
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleCoach, RoleMember:
		return true
	}
	return false
}

// AuthContext holds the signed-in user for a request
type AuthContext struct {
	User        *User
	SessionID   string
	AccessToken string
}

// NewContext stores authCtx in ctx
func NewContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return contextkeys.WithAuth(ctx, authCtx)
}

// FromContext returns the AuthContext stored in ctx, or nil
func FromContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// UserFromContext returns the signed-in user, or nil
func UserFromContext(ctx context.Context) *User {
	if authCtx := FromContext(ctx); authCtx != nil {
		return authCtx.User
	}
	return nil
}
