package handshake

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/teamsites/pkg/auth"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/reconcile"
)

// State is a handshake state
type State string

const (
	StateStart       State = "start"
	StateExtracting  State = "extracting"
	StateResolving   State = "resolving"
	StateSyncing     State = "syncing"
	StateReconciling State = "reconciling"
	StateFailed      State = "failed"
	StateDone        State = "done"
)

const (
	DashboardPath = "/dashboard"
	LoginPath     = "/login"
)

// Reconciler converges a signed-in user's workspace and memberships
type Reconciler interface {
	Reconcile(ctx context.Context, user auth.User) *reconcile.Report
}

// Outcome is the result of one handshake
type Outcome struct {
	Kind    Kind
	States  []State
	Target  string
	Cookies []*http.Cookie
	User    *auth.User

	// Reason and Err are set when the handshake failed
	Reason string
	Err    error

	// SyncErr is set when the server-side session could not be established
	SyncErr error
	Report  *reconcile.Report
}

// Failed reports whether the handshake ended in Failed
func (o *Outcome) Failed() bool {
	return o.Err != nil
}

func (o *Outcome) enter(s State) {
	o.States = append(o.States, s)
}

// Controller runs callback handshakes
type Controller struct {
	resolver   CredentialResolver
	sync       Synchronizer
	reconciler Reconciler
	logger     *observability.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewController creates a controller. metrics may be nil.
func NewController(resolver CredentialResolver, sync Synchronizer, reconciler Reconciler, logger *observability.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		resolver:   resolver,
		sync:       sync,
		reconciler: reconciler,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Begin starts a handshake for one callback visit. verifier is the PKCE
// verifier saved when the login started, or empty.
func (c *Controller) Begin(callback *url.URL, verifier string) *Handshake {
	return &Handshake{
		controller: c,
		callback:   callback,
		verifier:   verifier,
		done:       make(chan struct{}),
	}
}

// Handshake is a single callback visit
type Handshake struct {
	controller *Controller
	callback   *url.URL
	verifier   string

	started atomic.Bool
	done    chan struct{}
	outcome *Outcome
}

// Run executes the handshake once. Later and concurrent calls wait for the
// first run and return its Outcome.
func (h *Handshake) Run(ctx context.Context) *Outcome {
	if !h.started.CompareAndSwap(false, true) {
		<-h.done
		return h.outcome
	}
	defer close(h.done)

	h.outcome = h.controller.run(context.WithoutCancel(ctx), h.callback, h.verifier)
	return h.outcome
}

func (c *Controller) run(ctx context.Context, callback *url.URL, verifier string) *Outcome {
	start := c.now()
	ctx, span := observability.Tracer().Start(ctx, "handshake.Run")
	defer span.End()

	o := &Outcome{States: []State{StateStart}}
	defer func() {
		c.record(o, start)
		span.SetAttributes(
			attribute.String("handshake.kind", string(o.Kind)),
			attribute.String("handshake.target", o.Target),
		)
		if o.Failed() {
			span.SetStatus(codes.Error, o.Reason)
		}
	}()

	o.enter(StateExtracting)
	cred := Extract(callback)
	o.Kind = cred.Kind
	if err := cred.Failure(); err != nil {
		c.fail(o, err)
		return o
	}
	cred.Verifier = verifier

	o.enter(StateResolving)
	session, err := c.resolver.Resolve(ctx, cred)
	if err != nil {
		c.fail(o, err)
		return o
	}
	user := session.User()
	o.User = &user
	logger := c.logger.WithField("user_id", user.ID).WithField("kind", string(cred.Kind))

	o.enter(StateSyncing)
	cookies, err := c.sync.Sync(ctx, session)
	if err != nil {
		o.SyncErr = err
		if c.metrics != nil {
			c.metrics.SessionSyncFailures.Inc()
		}
		logger.WithError(err).Warn("Continuing without a server session")
	} else {
		o.Cookies = cookies
	}

	o.enter(StateReconciling)
	o.Report = c.reconciler.Reconcile(ctx, user)
	if !o.Report.OK() {
		logger.WithField("errors", len(o.Report.Errors)).Warn("Post-login reconciliation incomplete")
	}

	o.enter(StateDone)
	o.Target = DashboardPath
	logger.Info("Handshake complete")
	return o
}

// fail moves the outcome through Failed to Done on the login page
func (c *Controller) fail(o *Outcome, err error) {
	o.Err = err
	o.Reason = failureReason(err)
	o.enter(StateFailed)
	o.enter(StateDone)
	o.Target = LoginPath + "?error=" + url.QueryEscape(o.Reason)

	c.logger.WithError(err).WithField("kind", string(o.Kind)).Info("Handshake failed")
}

func (c *Controller) record(o *Outcome, start time.Time) {
	if c.metrics == nil {
		return
	}
	result := "done"
	if o.Failed() {
		result = "failed"
	}
	c.metrics.HandshakesTotal.WithLabelValues(result, string(o.Kind)).Inc()
	c.metrics.HandshakeDuration.Observe(c.now().Sub(start).Seconds())
}

func failureReason(err error) string {
	var (
		exchange  *AuthExchangeFailed
		malformed *MalformedCallback
	)
	switch {
	case errors.As(err, &exchange):
		return exchange.Message
	case errors.As(err, &malformed):
		return malformed.Reason
	default:
		return err.Error()
	}
}
