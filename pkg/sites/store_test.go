package sites

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/content"
	"github.com/platinummonkey/teamsites/pkg/storage/storagetest"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

type fixture struct {
	sites *Store
	teams *teams.Store
	team  *teams.Team
}

func newFixture(t *testing.T) *fixture {
	db := storagetest.NewSQLite(t)
	f := &fixture{sites: NewStore(db), teams: teams.NewStore(db)}

	team, err := f.teams.CreateTeam(context.Background(), "Gearheads", "owner-1")
	require.NoError(t, err)
	f.team = team
	return f
}

func TestStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	site, err := f.sites.CreateSite(ctx, f.team.ID, "Gearheads Site", "gearheads", content.DefaultJSON("Gearheads"))
	require.NoError(t, err)

	got, err := f.sites.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, "gearheads", got.Subdomain)
	assert.Equal(t, f.team.ID, got.TeamID)

	got, err = f.sites.GetSiteBySubdomain(ctx, "GearHeads")
	require.NoError(t, err)
	assert.Equal(t, site.ID, got.ID)

	_, err = f.sites.GetSiteBySubdomain(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	data, err := f.sites.GetContent(ctx, site.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(content.DefaultJSON("Gearheads")), string(data))

	list, err := f.sites.ListSitesForUser(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.sites.ListSitesForUser(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_SubdomainUniqueIgnoresCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sites.CreateSite(ctx, f.team.ID, "One", "robots", []byte(`{}`))
	require.NoError(t, err)

	_, err = f.sites.CreateSite(ctx, f.team.ID, "Two", "ROBOTS", []byte(`{}`))
	assert.ErrorIs(t, err, ErrSubdomainTaken)

	// The failed insert rolled back entirely.
	list, err := f.sites.ListSitesForUser(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_PutContentAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	site, err := f.sites.CreateSite(ctx, f.team.ID, "One", "robots", []byte(`{}`))
	require.NoError(t, err)

	f.sites.now = func() time.Time { return site.CreatedAt.Add(time.Hour) }
	require.NoError(t, f.sites.PutContent(ctx, site.ID, []byte(`{"bullets":["hi"]}`)))

	data, err := f.sites.GetContent(ctx, site.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bullets":["hi"]}`, string(data))

	got, err := f.sites.GetSite(ctx, site.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.NoError(t, f.sites.RecordPublication(ctx, &Publication{
		SiteID: site.ID, ObjectKey: "sites/robots/index.html", Checksum: "abc", PublishedAt: got.UpdatedAt,
	}))

	require.NoError(t, f.sites.DeleteSite(ctx, site.ID))
	_, err = f.sites.GetSite(ctx, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	data, err = f.sites.GetContent(ctx, site.ID)
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = f.sites.GetPublication(ctx, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.sites.DeleteSite(ctx, site.ID), ErrNotFound)
}

func TestStore_CreateWorkspace(t *testing.T) {
	ctx := context.Background()
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	teamStore := teams.NewStore(db)

	w := Workspace{
		TeamName:  "jane's Team",
		SiteName:  "jane's Team Site",
		Subdomain: "jane",
		Content:   content.DefaultJSON("jane's Team"),
	}

	result, err := store.CreateWorkspace(ctx, "user-1", w)
	require.NoError(t, err)
	assert.Equal(t, "jane", result.Subdomain)

	role, err := teamStore.MemberRole(ctx, result.TeamID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOwner, role)

	_, err = store.CreateWorkspace(ctx, "user-1", w)
	assert.ErrorIs(t, err, ErrOwnerHasTeam)

	// A colliding subdomain leaves nothing behind for the second owner.
	_, err = store.CreateWorkspace(ctx, "user-2", w)
	assert.ErrorIs(t, err, ErrSubdomainTaken)

	owns, err := teamStore.OwnsTeam(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, owns)
}

func TestStore_CreateWorkspaceConcurrentOwner(t *testing.T) {
	assertSingleWorkspace(t, storagetest.NewSQLite(t))
}

// assertSingleWorkspace races bootstraps for one owner and expects exactly
// one team to come out of it.
func assertSingleWorkspace(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	store := NewStore(db)

	const runs = 4
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateWorkspace(ctx, "racer", Workspace{
				TeamName:  "Racer's Team",
				SiteName:  "Racer's Team Site",
				Subdomain: fmt.Sprintf("racer-%d", i),
				Content:   content.DefaultJSON("Racer's Team"),
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrOwnerHasTeam)
	}
	assert.Equal(t, 1, created)

	var owned int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE owner = $1`, "racer").Scan(&owned))
	assert.Equal(t, 1, owned)
}
