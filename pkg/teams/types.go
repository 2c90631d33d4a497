package teams

import (
	"errors"
	"time"

	"github.com/platinummonkey/teamsites/pkg/auth"
)

var (
	// ErrNotFound is returned when a team does not exist or the user is not on it
	ErrNotFound = errors.New("team not found")
	// ErrAlreadyMember is returned when a membership row already exists
	ErrAlreadyMember = errors.New("already a member of this team")
	// ErrInvalidRole is returned for roles outside owner, coach and member
	ErrInvalidRole = errors.New("invalid role")
)

// Team is a group that owns sites
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`

	// Role is the caller's membership role when listed for a user
	Role auth.Role `json:"role,omitempty"`
}

// Invite is a pending invitation for an email address to join a team
type Invite struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	Role       auth.Role  `json:"role"`
	InvitedBy  string     `json:"invited_by"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Accepted reports whether the invite has been stamped
func (i *Invite) Accepted() bool {
	return i.AcceptedAt != nil
}

// CreateTeamRequest is the body of POST /api/teams
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// CreateInviteRequest is the body of POST /api/teams/{id}/invites
type CreateInviteRequest struct {
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}
