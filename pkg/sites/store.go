package sites

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/storage"
)

const siteColumns = `id, team_id, name, subdomain, created_at, updated_at`

// Store persists sites, their content documents and publication records
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

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSite(row scanner) (*Site, error) {
	site := &Site{}
	if err := row.Scan(&site.ID, &site.TeamID, &site.Name, &site.Subdomain, &site.CreatedAt, &site.UpdatedAt); err != nil {
		return nil, err
	}
	return site, nil
}

// CreateSite inserts a site and its initial content in one transaction. A
// case-insensitive subdomain collision returns ErrSubdomainTaken.
func (s *Store) CreateSite(ctx context.Context, teamID, name, subdomain string, content []byte) (site *Site, err error) {
	now := s.now()
	site = &Site{
		ID:        s.newID(),
		TeamID:    teamID,
		Name:      name,
		Subdomain: subdomain,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	if err = insertSite(ctx, tx, site, content); err != nil {
		return nil, err
	}
	return site, nil
}

func insertSite(ctx context.Context, tx *sql.Tx, site *Site, content []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sites (id, team_id, name, subdomain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, site.ID, site.TeamID, site.Name, site.Subdomain, site.CreatedAt, site.UpdatedAt)
	if storage.IsUniqueViolation(err) {
		return ErrSubdomainTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO site_content (site_id, data, updated_at) VALUES ($1, $2, $3)`,
		site.ID, string(content), site.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to seed site content: %w", err)
	}
	return nil
}

// CreateWorkspace creates a team owned by owner, the owner membership, a site
// and its content in one transaction. Ownership is re-checked inside the
// transaction; when owner already owns a team nothing is written and
// ErrOwnerHasTeam is returned.
func (s *Store) CreateWorkspace(ctx context.Context, owner string, w Workspace) (result *WorkspaceResult, err error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	// The claim row lock serializes bootstraps for one owner, so the
	// ownership check below sees any team a concurrent run committed.
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO workspace_claims (owner, claimed_at) VALUES ($1, $2)
		 ON CONFLICT (owner) DO UPDATE SET claimed_at = excluded.claimed_at`,
		owner, now,
	); err != nil {
		return nil, fmt.Errorf("failed to claim workspace: %w", err)
	}

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM teams WHERE owner = $1 LIMIT 1`, owner).Scan(&one)
	switch {
	case err == nil:
		return nil, ErrOwnerHasTeam
	case !storage.IsNoRows(err):
		return nil, fmt.Errorf("failed to check team ownership: %w", err)
	}
	err = nil

	teamID := s.newID()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO teams (id, name, owner, created_at) VALUES ($1, $2, $3, $4)`,
		teamID, w.TeamName, owner, now,
	); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`,
		teamID, owner, auth.RoleOwner, now,
	); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	site := &Site{
		ID:        s.newID(),
		TeamID:    teamID,
		Name:      w.SiteName,
		Subdomain: w.Subdomain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = insertSite(ctx, tx, site, w.Content); err != nil {
		return nil, err
	}

	return &WorkspaceResult{TeamID: teamID, SiteID: site.ID, Subdomain: site.Subdomain}, nil
}

// GetSite retrieves a site by ID
func (s *Store) GetSite(ctx context.Context, id string) (*Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = $1`, id))
	if storage.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// GetSiteBySubdomain retrieves a site by subdomain, ignoring case
func (s *Store) GetSiteBySubdomain(ctx context.Context, subdomain string) (*Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE lower(subdomain) = lower($1)`, subdomain))
	if storage.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListSitesForUser returns the sites of every team userID belongs to
func (s *Store) ListSitesForUser(ctx context.Context, userID string) ([]*Site, error) {
	return s.listSites(ctx, `
		SELECT s.id, s.team_id, s.name, s.subdomain, s.created_at, s.updated_at
		FROM sites s
		JOIN team_members m ON m.team_id = s.team_id
		WHERE m.user_id = $1
		ORDER BY s.created_at ASC, s.id ASC
	`, userID)
}

// ListPublishedSites returns every site that has been published at least once
func (s *Store) ListPublishedSites(ctx context.Context) ([]*Site, error) {
	return s.listSites(ctx, `
		SELECT s.id, s.team_id, s.name, s.subdomain, s.created_at, s.updated_at
		FROM sites s
		JOIN site_publications p ON p.site_id = s.id
		ORDER BY s.created_at ASC, s.id ASC
	`)
}

func (s *Store) listSites(ctx context.Context, query string, args ...interface{}) ([]*Site, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := []*Site{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// GetContent returns the stored content document of a site. A site without
// a content row yields nil data and no error.
func (s *Store) GetContent(ctx context.Context, siteID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM site_content WHERE site_id = $1`, siteID).Scan(&data)
	if storage.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site content: %w", err)
	}
	return data, nil
}

// PutContent stores the content document of a site, replacing any previous one
func (s *Store) PutContent(ctx context.Context, siteID string, data []byte) (err error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO site_content (site_id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (site_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, siteID, string(data), now); err != nil {
		return fmt.Errorf("failed to save site content: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE sites SET updated_at = $1 WHERE id = $2`, now, siteID); err != nil {
		return fmt.Errorf("failed to touch site: %w", err)
	}
	return nil
}

// DeleteSite removes a site's content, publication record and the site itself
func (s *Store) DeleteSite(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { err = storage.Finish(tx, err) }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM site_content WHERE site_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete site content: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM site_publications WHERE site_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete site publication: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordPublication upserts the publication record of a site
func (s *Store) RecordPublication(ctx context.Context, pub *Publication) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO site_publications (site_id, object_key, checksum, published_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site_id) DO UPDATE
		SET object_key = excluded.object_key, checksum = excluded.checksum, published_at = excluded.published_at
	`, pub.SiteID, pub.ObjectKey, pub.Checksum, pub.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to record publication: %w", err)
	}
	return nil
}

// GetPublication returns the last publication of a site, or ErrNotFound
func (s *Store) GetPublication(ctx context.Context, siteID string) (*Publication, error) {
	pub := &Publication{}
	err := s.db.QueryRowContext(ctx,
		`SELECT site_id, object_key, checksum, published_at FROM site_publications WHERE site_id = $1`, siteID,
	).Scan(&pub.SiteID, &pub.ObjectKey, &pub.Checksum, &pub.PublishedAt)
	if storage.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}
	return pub, nil
}
