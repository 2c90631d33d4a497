package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/teamsites/pkg/config"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/sites"
	"github.com/platinummonkey/teamsites/pkg/storage"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

var runOnce = flag.Bool("run-once", false, "Run every job once and exit")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithField("component", "worker")

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	w, err := newWorker(ctx, cfg, db, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize worker")
		os.Exit(1)
	}

	if *runOnce {
		if err := w.runAll(ctx); err != nil {
			logger.WithError(err).Error("Jobs failed")
			os.Exit(1)
		}
		logger.Info("Jobs completed")
		return
	}

	c := cron.New(cron.WithLogger(cronLogger{logger}))
	if _, err := c.AddFunc(cfg.Worker.RepublishSchedule, w.job("republish", w.republish)); err != nil {
		logger.WithError(err).Error("Failed to schedule republish")
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.Worker.PruneSchedule, w.job("prune-invites", w.pruneInvites)); err != nil {
		logger.WithError(err).Error("Failed to schedule invite pruning")
		os.Exit(1)
	}

	c.Start()
	logger.WithFields(map[string]interface{}{
		"republish_schedule": cfg.Worker.RepublishSchedule,
		"prune_schedule":     cfg.Worker.PruneSchedule,
	}).Info("Teamsites worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down gracefully...")

	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("Worker stopped")
}

type worker struct {
	publisher *sites.Publisher
	teams     *teams.Store
	inviteTTL time.Duration
	logger    *observability.Logger
	now       func() time.Time
}

func newWorker(ctx context.Context, cfg *config.Config, db *sql.DB, logger *observability.Logger) (*worker, error) {
	var objects sites.ObjectWriter
	if cfg.Storage.S3Enabled() {
		store, err := storage.NewS3ObjectStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		objects = store
	}

	siteStore := sites.NewStore(db)
	pages := sites.NewPages(siteStore, nil, nil)
	return &worker{
		publisher: sites.NewPublisher(objects, siteStore, pages, cfg.Sites.PublishPrefix, nil, logger),
		teams:     teams.NewStore(db),
		inviteTTL: cfg.Worker.InviteTTL,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// job adapts a worker step to a cron entry
func (w *worker) job(name string, run func(context.Context) error) func() {
	return func() {
		defer observability.RecoverPanic(w.logger, name+" job")
		_ = run(context.Background())
	}
}

func (w *worker) runAll(ctx context.Context) error {
	if err := w.republish(ctx); err != nil {
		return err
	}
	return w.pruneInvites(ctx)
}

// republish renders and uploads every published site
func (w *worker) republish(ctx context.Context) error {
	if !w.publisher.Enabled() {
		w.logger.Debug("Object storage not configured, skipping republish")
		return nil
	}
	published, failed, err := w.publisher.RepublishAll(ctx)
	entry := w.logger.WithFields(map[string]interface{}{"published": published, "failed": failed})
	if err != nil {
		entry.WithError(err).Error("Republish failed")
		return err
	}
	entry.Info("Republish completed")
	return nil
}

// pruneInvites removes invites nobody accepted within the invite TTL
func (w *worker) pruneInvites(ctx context.Context) error {
	cutoff := w.now().UTC().Add(-w.inviteTTL)
	removed, err := w.teams.PruneInvites(ctx, cutoff)
	if err != nil {
		w.logger.WithError(err).Error("Invite pruning failed")
		return err
	}
	w.logger.WithFields(map[string]interface{}{"removed": removed, "cutoff": cutoff}).Info("Pruned stale invites")
	return nil
}

// cronLogger adapts the logger to cron.Logger
type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
