package teams

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/storage"
)

// Store persists teams, memberships and pending invites. Queries are written
// to run unchanged on PostgreSQL and SQLite.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// OwnsTeam reports whether userID owns at least one team
func (s *Store) OwnsTeam(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE owner = $1 LIMIT 1`, userID).Scan(&one)
	if storage.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check team ownership: %w", err)
	}
	return true, nil
}

// CreateTeam creates a team owned by owner and adds the owner membership in
// the same transaction.
func (s *Store) CreateTeam(ctx context.Context, name, owner string) (team *Team, err error) {
	team = &Team{
		ID:        s.newID(),
		Name:      name,
		Owner:     owner,
		CreatedAt: s.now(),
		Role:      auth.RoleOwner,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO teams (id, name, owner, created_at) VALUES ($1, $2, $3, $4)`,
		team.ID, team.Name, team.Owner, team.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		team.ID, owner, auth.RoleOwner, team.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	return team, nil
}

// GetTeam retrieves a team by ID
func (s *Store) GetTeam(ctx context.Context, id string) (*Team, error) {
	team := &Team{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner, created_at FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.Name, &team.Owner, &team.CreatedAt)
	if storage.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams returns the teams userID belongs to with the user's role on each
func (s *Store) ListTeams(ctx context.Context, userID string) ([]*Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.owner, t.created_at, m.role
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at ASC, t.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.Owner, &team.CreatedAt, &team.Role); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// MemberRole returns userID's role on teamID, or ErrNotFound when the user is
// not a member.
func (s *Store) MemberRole(ctx context.Context, teamID, userID string) (auth.Role, error) {
	var role auth.Role
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID,
	).Scan(&role)
	if storage.IsNoRows(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get member role: %w", err)
	}
	return role, nil
}

// AddMember inserts a membership. It returns ErrAlreadyMember when the user
// is already on the team.
func (s *Store) AddMember(ctx context.Context, teamID, userID string, role auth.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, teamID, userID, role, s.now())
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

// CreateInvite records a pending invite. Emails are stored lowercased.
func (s *Store) CreateInvite(ctx context.Context, teamID, email string, role auth.Role, invitedBy string) (*Invite, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	invite := &Invite{
		ID:        s.newID(),
		TeamID:    teamID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		InvitedBy: invitedBy,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_invites (id, team_id, email, role, invited_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, invite.ID, invite.TeamID, invite.Email, invite.Role, invite.InvitedBy, invite.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return invite, nil
}

// ListPendingInvites returns unaccepted invites for email, matched
// case-insensitively, oldest first.
func (s *Store) ListPendingInvites(ctx context.Context, email string) ([]*Invite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, email, role, invited_by, created_at
		FROM pending_invites
		WHERE lower(email) = lower($1) AND accepted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invites: %w", err)
	}
	defer rows.Close()

	invites := []*Invite{}
	for rows.Next() {
		invite := &Invite{}
		if err := rows.Scan(&invite.ID, &invite.TeamID, &invite.Email, &invite.Role,
			&invite.InvitedBy, &invite.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending invites: %w", err)
	}
	return invites, nil
}

// AcceptInvite adds userID to the invite's team and stamps the invite, both in
// one transaction. An existing membership is left untouched and still counts
// as success. The stamp only applies while accepted_at is NULL, so a replay
// changes nothing. It reports whether this call stamped the invite.
func (s *Store) AcceptInvite(ctx context.Context, invite *Invite, userID string) (stamped bool, err error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, invite.TeamID, userID, invite.Role, now); err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE pending_invites SET accepted_at = $1 WHERE id = $2 AND accepted_at IS NULL`,
		now, invite.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark invite accepted: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		invite.AcceptedAt = &now
	}
	return rowsAffected > 0, nil
}

// PruneInvites deletes unaccepted invites created before cutoff and returns
// how many were removed.
func (s *Store) PruneInvites(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_invites WHERE accepted_at IS NULL AND created_at < $1`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invites: %w", err)
	}
	return result.RowsAffected()
}
