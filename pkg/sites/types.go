package sites

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a site does not exist
	ErrNotFound = errors.New("site not found")
	// ErrSubdomainTaken is returned when a subdomain collides case-insensitively
	ErrSubdomainTaken = errors.New("subdomain is already taken")
	// ErrOwnerHasTeam is returned by CreateWorkspace when the owner already owns a team
	ErrOwnerHasTeam = errors.New("owner already has a team")
	// ErrPublishingDisabled is returned when no object store is configured
	ErrPublishingDisabled = errors.New("publishing is not configured")
)

// Site is a public website belonging to a team
type Site struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSiteRequest is the body of POST /api/sites
type CreateSiteRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	TeamID    string `json:"team_id"`
}

// Workspace is the starter team, site and content created for a new owner
type Workspace struct {
	TeamName  string
	SiteName  string
	Subdomain string
	Content   []byte
}

// WorkspaceResult identifies the rows CreateWorkspace inserted
type WorkspaceResult struct {
	TeamID    string `json:"team_id"`
	SiteID    string `json:"site_id"`
	Subdomain string `json:"subdomain"`
}

// Publication records the last upload of a site's static page
type Publication struct {
	SiteID      string    `json:"site_id"`
	ObjectKey   string    `json:"object_key"`
	Checksum    string    `json:"checksum"`
	PublishedAt time.Time `json:"published_at"`
}
