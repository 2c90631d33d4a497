package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/teamsites/pkg/config"
	"github.com/platinummonkey/teamsites/pkg/handshake"
	"github.com/platinummonkey/teamsites/pkg/identity"
	"github.com/platinummonkey/teamsites/pkg/middleware"
	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/reconcile"
	"github.com/platinummonkey/teamsites/pkg/session"
	"github.com/platinummonkey/teamsites/pkg/sites"
	"github.com/platinummonkey/teamsites/pkg/storage"
	"github.com/platinummonkey/teamsites/pkg/teams"
)

var version = "dev"

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Infof("Connected to %s database", cfg.Storage.Driver)

	redisClient, err := storage.NewRedisClient(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		return err
	}

	probes := []observability.Probe{observability.DatabaseProbe(db), observability.RedisProbe(redisClient)}

	var objects sites.ObjectWriter
	if cfg.Storage.S3Enabled() {
		store, err := storage.NewS3ObjectStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		objects = store
		probes = append(probes, observability.Probe{Name: "object_store", Check: store.Ping})
		logger.Infof("Publishing sites to bucket %s", store.Bucket())
	}

	idp := identity.NewClient(ctx, identity.Config{
		URL:         cfg.Identity.URL,
		APIKey:      cfg.Identity.APIKey,
		AdminKey:    cfg.Identity.AdminKey,
		ClientID:    cfg.Identity.ClientID,
		Issuer:      cfg.Identity.Issuer,
		JWKSURL:     cfg.Identity.JWKSURL,
		RedirectURL: cfg.Server.BaseURL + handshake.CallbackPath,
		Timeout:     cfg.Identity.Timeout,
	})

	var extraReserved, extraOrigins []string
	if cfg.File != nil {
		extraReserved = cfg.File.ReservedSubdomains
		extraOrigins = cfg.File.AllowedOrigins
	}
	reserved := sites.NewReserved(extraReserved...)
	origins := middleware.NewOrigins(cfg.Server.BaseURL, extraOrigins...)

	teamStore := teams.NewStore(db)
	siteStore := sites.NewStore(db)
	pages := sites.NewPages(siteStore, sites.NewRenderCache(cfg.Sites.RenderCacheSize, cfg.Sites.RenderCacheTTL, metrics), metrics)
	publisher := sites.NewPublisher(objects, siteStore, pages, cfg.Sites.PublishPrefix, metrics, logger)
	reconciler := reconcile.NewReconciler(teamStore, siteStore, reserved, logger, metrics)

	sessions := session.NewRedisStore(redisClient, cfg.Session.TTL)
	controller := handshake.NewController(
		handshake.NewResolver(idp, handshake.NewRedisReplayGuard(redisClient, cfg.Session.ReplayTTL), logger),
		handshake.NewEndpointSynchronizer(cfg.Session.EstablishURL, cfg.Session.SyncTimeout),
		reconciler,
		logger,
		metrics,
	)

	sessionHandlers := session.NewHandlers(idp, sessions, session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		TTL:    cfg.Session.TTL,
	}, logger)

	router := newRouter(routerDeps{
		logger:    logger,
		metrics:   metrics,
		redis:     redisClient,
		sessions:  sessions,
		origins:   origins,
		cfg:       cfg,
		handshake: handshake.NewHandlers(controller, idp, cfg.Server.BaseURL, cfg.Session.CookieSecure, logger),
		session:   sessionHandlers,
		teams:     teams.NewHandlers(teamStore, idp, cfg.Server.BaseURL, logger),
		sites:     sites.NewHandlers(siteStore, teamStore, pages, publisher, reserved, logger),
		reconcile: reconcile.NewHandlers(reconciler),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      observability.InstrumentHandler(router, "teamsites"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(version, probes...))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error { return db.Close() })
	shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	if cfg.FilePath != "" {
		watchCtx, stopWatching := context.WithCancel(ctx)
		watcher := config.NewWatcher(cfg.FilePath, logger, func(file *config.FileConfig) {
			reserved.Set(file.ReservedSubdomains)
			origins.Set(file.AllowedOrigins)
			logger.WithFields(map[string]interface{}{
				"reserved_subdomains": len(file.ReservedSubdomains),
				"allowed_origins":     len(file.AllowedOrigins),
			}).Info("Reloaded config file")
		})
		go func() {
			if err := watcher.Run(watchCtx); err != nil {
				logger.WithError(err).Warn("Config watcher stopped")
			}
		}()
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			stopWatching()
			return nil
		})
	}

	serve(healthServer, logger, "health")
	serve(server, logger, "api")
	logger.WithFields(map[string]interface{}{
		"addr":        server.Addr,
		"health_addr": healthServer.Addr,
		"version":     version,
	}).Info("Teamsites server started")

	return shutdown.WaitForShutdown()
}

func serve(server *http.Server, logger *observability.Logger, name string) {
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s server failed", name)
			os.Exit(1)
		}
	}()
}

type routerDeps struct {
	logger   *observability.Logger
	metrics  *observability.Metrics
	redis    *redis.Client
	sessions session.Store
	origins  *middleware.Origins
	cfg      *config.Config

	handshake *handshake.Handlers
	session   *session.Handlers
	teams     *teams.Handlers
	sites     *sites.Handlers
	reconcile *reconcile.Handlers
}

// newRouter assembles the middleware chain and every route. Handlers
// register full paths, so the subrouters only scope middleware.
func newRouter(deps routerDeps) *mux.Router {
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Logger(deps.logger),
		middleware.Recover(deps.logger),
		observability.HTTPMetricsMiddleware(deps.metrics),
		deps.origins.Handler,
		middleware.Session(deps.sessions, deps.cfg.Session.CookieName, deps.logger),
	)

	limiter := middleware.NewRateLimiter(deps.redis, middleware.RateLimitConfig{
		RequestsPerWindow: deps.cfg.Session.RateLimit,
		WindowDuration:    deps.cfg.Session.RateWindow,
	}, "ratelimit:auth", deps.logger)

	deps.session.RegisterEstablishRoute(router)

	authRoutes := router.NewRoute().Subrouter()
	authRoutes.Use(limiter.Handler)
	deps.handshake.RegisterRoutes(authRoutes)
	deps.session.RegisterSignOutRoute(authRoutes)

	deps.sites.RegisterPublicRoutes(router)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.RequireAuth)
	deps.teams.RegisterRoutes(api)
	deps.reconcile.RegisterRoutes(api)
	deps.sites.RegisterRoutes(api)

	return router
}
