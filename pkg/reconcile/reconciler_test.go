package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/sites"
	"github.com/platinummonkey/teamsites/pkg/storage/storagetest"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

type env struct {
	db         *sql.DB
	teams      *teams.Store
	sites      *sites.Store
	reconciler *Reconciler
	metrics    *observability.Metrics
}

func newEnv(t *testing.T) *env {
	db := storagetest.NewSQLite(t)
	e := &env{
		db:      db,
		teams:   teams.NewStore(db),
		sites:   sites.NewStore(db),
		metrics: observability.NewNopMetrics(),
	}
	e.reconciler = NewReconciler(e.teams, e.sites, sites.NewReserved(), observability.NewNopLogger(), e.metrics)
	return e
}

func (e *env) count(t *testing.T, query string, args ...interface{}) int {
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestIntentFor(t *testing.T) {
	reserved := sites.NewReserved()
	tests := []struct {
		email     string
		team      string
		subdomain string
	}{
		{"Jane.Doe@example.com", "Jane.Doe's Team", "jane-doe"},
		{"jo@example.com", "jo's Team", "jo-team"},
		{"admin@example.com", "admin's Team", "admin-team"},
		{"@example.com", "team's Team", "team"},
		{"!!!@example.com", "!!!'s Team", "team"},
		{"abcdefghijabcdefghijabcdefghijabcdefghijXYZ@example.com",
			"abcdefghijabcdefghijabcdefghijabcdefghijXYZ's Team", "abcdefghijabcdefghijabcdefghijabcde-team"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			intent := IntentFor(auth.User{ID: "u", Email: tt.email}, reserved)
			assert.Equal(t, tt.team, intent.TeamName)
			assert.Equal(t, tt.team+" Site", intent.SiteName)
			assert.Equal(t, tt.subdomain, intent.Subdomain)
			assert.LessOrEqual(t, len(intent.Subdomain), sites.MaxSubdomainLength)
		})
	}

	suffixed := IntentFor(auth.User{Email: "jane@example.com"}, reserved).WithSuffix("a1b2c3")
	assert.Equal(t, "jane-a1b2c3", suffixed.Subdomain)
}

func TestBootstrap_Once(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := auth.User{ID: "user-1", Email: "jane@example.com"}

	result, err := e.reconciler.Bootstrap(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, result.Created)
	assert.Equal(t, "jane", result.Created.Subdomain)

	result, err = e.reconciler.Bootstrap(ctx, user)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM teams WHERE owner = 'user-1'`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM sites`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM site_content`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM team_members WHERE user_id = 'user-1' AND role = 'owner'`))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.WorkspacesBootstrapped))
}

func TestBootstrap_SubdomainCollisionRetries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	suffixes := []string{"aaaaaa", "bbbbbb", "cccccc"}
	e.reconciler.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	// Someone else already holds "jane" and "jane-aaaaaa".
	other, err := e.teams.CreateTeam(ctx, "Other", "other")
	require.NoError(t, err)
	_, err = e.sites.CreateSite(ctx, other.ID, "A", "jane", []byte(`{}`))
	require.NoError(t, err)
	_, err = e.sites.CreateSite(ctx, other.ID, "B", "JANE-AAAAAA", []byte(`{}`))
	require.NoError(t, err)

	result, err := e.reconciler.Bootstrap(ctx, auth.User{ID: "user-1", Email: "jane@example.com"})
	require.NoError(t, err)
	require.NotNil(t, result.Created)
	assert.Equal(t, "jane-bbbbbb", result.Created.Subdomain)
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM teams WHERE owner = 'user-1'`))
}

func TestBootstrap_GivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	ws := &fakeWorkspaces{err: sites.ErrSubdomainTaken}
	r := NewReconciler(&fakeTeams{}, ws, sites.NewReserved(), observability.NewNopLogger(), nil)

	_, err := r.Bootstrap(ctx, auth.User{ID: "u", Email: "jane@example.com"})
	assert.ErrorIs(t, err, sites.ErrSubdomainTaken)
	assert.Equal(t, MaxSubdomainRetries+1, ws.calls)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	team, err := e.teams.CreateTeam(ctx, "Gearheads", "coach-owner")
	require.NoError(t, err)
	_, err = e.teams.CreateInvite(ctx, team.ID, "Jane@Example.com", auth.RoleCoach, "coach-owner")
	require.NoError(t, err)

	user := auth.User{ID: "user-1", Email: "jane@example.com"}

	first := e.reconciler.Reconcile(ctx, user)
	assert.True(t, first.OK())
	assert.Equal(t, 1, first.Accepted)
	require.NotNil(t, first.Bootstrap.Created)

	second := e.reconciler.Reconcile(ctx, user)
	assert.True(t, second.OK())
	assert.Equal(t, 0, second.Accepted)
	assert.True(t, second.Bootstrap.Skipped)

	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND user_id = $2`, team.ID, user.ID))
	assert.Equal(t, 0, e.count(t, `SELECT COUNT(*) FROM pending_invites WHERE accepted_at IS NULL`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM teams WHERE owner = $1`, user.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.InvitesAcceptedTotal))
}

func TestReconcile_CollectsPartialFailures(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTeams{
		invites: []*teams.Invite{
			{ID: "inv-1", TeamID: "t1", Role: auth.RoleMember},
			{ID: "inv-2", TeamID: "t2", Role: auth.RoleMember},
			{ID: "inv-3", TeamID: "t3", Role: auth.RoleMember},
		},
		failInvite: "inv-2",
	}
	ws := &fakeWorkspaces{err: errors.New("disk full")}
	metrics := observability.NewNopMetrics()
	r := NewReconciler(ft, ws, sites.NewReserved(), observability.NewNopLogger(), metrics)

	report := r.Reconcile(ctx, auth.User{ID: "u", Email: "u@example.com"})
	assert.False(t, report.OK())
	assert.Nil(t, report.Bootstrap)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, []string{"inv-1", "inv-2", "inv-3"}, ft.attempted)
	require.Len(t, report.Errors, 2)

	var failure *ReconciliationPartialFailure
	require.ErrorAs(t, report.Errors[0], &failure)
	assert.Equal(t, StepBootstrap, failure.Step)
	require.ErrorAs(t, report.Errors[1], &failure)
	assert.Equal(t, StepInvite, failure.Step)
	assert.Equal(t, "inv-2", failure.ItemID)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReconcileErrorsTotal.WithLabelValues(StepBootstrap)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ReconcileErrorsTotal.WithLabelValues(StepInvite)))
}

func TestAcceptInvites_NoEmail(t *testing.T) {
	ft := &fakeTeams{invites: []*teams.Invite{{ID: "inv-1"}}}
	r := NewReconciler(ft, &fakeWorkspaces{}, nil, observability.NewNopLogger(), nil)

	accepted, errs := r.AcceptInvites(context.Background(), auth.User{ID: "u"})
	assert.Zero(t, accepted)
	assert.Empty(t, errs)
	assert.Empty(t, ft.attempted)
}

type fakeTeams struct {
	owns       bool
	invites    []*teams.Invite
	listErr    error
	failInvite string
	attempted  []string
}

func (f *fakeTeams) OwnsTeam(ctx context.Context, userID string) (bool, error) {
	return f.owns, nil
}

func (f *fakeTeams) ListPendingInvites(ctx context.Context, email string) ([]*teams.Invite, error) {
	return f.invites, f.listErr
}

func (f *fakeTeams) AcceptInvite(ctx context.Context, invite *teams.Invite, userID string) (bool, error) {
	f.attempted = append(f.attempted, invite.ID)
	if invite.ID == f.failInvite {
		return false, errors.New("deadlock detected")
	}
	return true, nil
}

type fakeWorkspaces struct {
	err   error
	calls int
}

func (f *fakeWorkspaces) CreateWorkspace(ctx context.Context, owner string, w sites.Workspace) (*sites.WorkspaceResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sites.WorkspaceResult{TeamID: "t", SiteID: "s", Subdomain: w.Subdomain}, nil
}
