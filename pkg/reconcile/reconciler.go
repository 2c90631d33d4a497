package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/content"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/sites"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

// MaxSubdomainRetries is how many suffixed candidates are tried after the
// first subdomain collides.
const MaxSubdomainRetries = 3

// TeamStore is the team persistence used during reconciliation
type TeamStore interface {
	OwnsTeam(ctx context.Context, userID string) (bool, error)
	ListPendingInvites(ctx context.Context, email string) ([]*teams.Invite, error)
	AcceptInvite(ctx context.Context, invite *teams.Invite, userID string) (bool, error)
}

// WorkspaceStore creates starter workspaces
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, owner string, w sites.Workspace) (*sites.WorkspaceResult, error)
}

// BootstrapResult describes what the bootstrap step did
type BootstrapResult struct {
	Skipped bool                   `json:"skipped,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Created *sites.WorkspaceResult `json:"created,omitempty"`
}

// Report summarizes one reconciliation run
type Report struct {
	Bootstrap *BootstrapResult
	Accepted  int
	Errors    []error
}

// OK reports whether every step succeeded
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Reconciler brings a signed-in user's workspace and memberships to their
// expected state. Every step is idempotent, so concurrent or repeated runs
// for the same user converge.
type Reconciler struct {
	teams    TeamStore
	sites    WorkspaceStore
	reserved *sites.Reserved
	logger   *observability.Logger
	metrics  *observability.Metrics
	suffix   func() string
}

// NewReconciler creates a reconciler. metrics may be nil.
func NewReconciler(teamStore TeamStore, workspaces WorkspaceStore, reserved *sites.Reserved, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		teams:    teamStore,
		sites:    workspaces,
		reserved: reserved,
		logger:   logger,
		metrics:  metrics,
		suffix:   func() string { return uuid.NewString()[:6] },
	}
}

// Reconcile runs bootstrap then invite acceptance. Failures are collected in
// the report as *ReconciliationPartialFailure; Reconcile never fails.
func (r *Reconciler) Reconcile(ctx context.Context, user auth.User) *Report {
	report := &Report{}

	bootstrap, err := r.Bootstrap(ctx, user)
	if err != nil {
		report.Errors = append(report.Errors, r.partial(StepBootstrap, "", err))
	}
	report.Bootstrap = bootstrap

	accepted, errs := r.AcceptInvites(ctx, user)
	report.Accepted = accepted
	report.Errors = append(report.Errors, errs...)

	return report
}

// Bootstrap creates the starter team, site and content when user owns no
// team. It is a no-op otherwise.
func (r *Reconciler) Bootstrap(ctx context.Context, user auth.User) (*BootstrapResult, error) {
	owns, err := r.teams.OwnsTeam(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if owns {
		return &BootstrapResult{Skipped: true, Reason: "Owner already has a team"}, nil
	}

	intent := IntentFor(user, r.reserved)
	candidate := intent
	for attempt := 0; attempt <= MaxSubdomainRetries; attempt++ {
		if attempt > 0 {
			candidate = intent.WithSuffix(r.suffix())
		}

		result, err := r.sites.CreateWorkspace(ctx, user.ID, sites.Workspace{
			TeamName:  candidate.TeamName,
			SiteName:  candidate.SiteName,
			Subdomain: candidate.Subdomain,
			Content:   content.DefaultJSON(candidate.TeamName),
		})
		switch {
		case err == nil:
			if r.metrics != nil {
				r.metrics.WorkspacesBootstrapped.Inc()
			}
			r.logger.WithFields(map[string]interface{}{
				"user_id":   user.ID,
				"team_id":   result.TeamID,
				"subdomain": result.Subdomain,
			}).Info("Starter workspace created")
			return &BootstrapResult{Created: result}, nil
		case errors.Is(err, sites.ErrOwnerHasTeam):
			// A concurrent run got there first.
			return &BootstrapResult{Skipped: true, Reason: "Owner already has a team"}, nil
		case errors.Is(err, sites.ErrSubdomainTaken):
			r.logger.WithField("subdomain", candidate.Subdomain).Debug("Starter subdomain taken, retrying")
			continue
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("no free subdomain for %q after %d retries: %w",
		intent.Subdomain, MaxSubdomainRetries, sites.ErrSubdomainTaken)
}

// AcceptInvites applies every pending invite addressed to user's email. Each
// invite is processed in its own transaction; one failure does not stop the
// rest. It returns how many invites were processed successfully.
func (r *Reconciler) AcceptInvites(ctx context.Context, user auth.User) (int, []error) {
	if user.Email == "" {
		return 0, nil
	}

	invites, err := r.teams.ListPendingInvites(ctx, user.Email)
	if err != nil {
		return 0, []error{r.partial(StepList, "", err)}
	}

	var (
		accepted int
		errs     []error
	)
	for _, invite := range invites {
		if invite.Accepted() {
			continue
		}
		stamped, err := r.teams.AcceptInvite(ctx, invite, user.ID)
		if err != nil {
			errs = append(errs, r.partial(StepInvite, invite.ID, err))
			continue
		}
		accepted++
		if stamped && r.metrics != nil {
			r.metrics.InvitesAcceptedTotal.Inc()
		}
	}

	if accepted > 0 {
		r.logger.WithFields(map[string]interface{}{
			"user_id":  user.ID,
			"accepted": accepted,
		}).Info("Pending invites accepted")
	}
	return accepted, errs
}

func (r *Reconciler) partial(step, itemID string, err error) error {
	if r.metrics != nil {
		r.metrics.ReconcileErrorsTotal.WithLabelValues(step).Inc()
	}
	failure := &ReconciliationPartialFailure{Step: step, ItemID: itemID, Err: err}
	r.logger.WithError(err).WithField("step", step).Warn("Reconciliation step failed")
	return failure
}
