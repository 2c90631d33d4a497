// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes the operational plumbing of the site server and the
// worker: JSON logging on logrus, metrics for handshakes and rendering, health
// checks, graceful shutdown, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("subdomain", "acme").Info("site rendered")
//
// Request-scoped logging:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Warn("session sync degraded")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.HandshakesTotal.WithLabelValues("done", "oauth_code").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version,
//		observability.DatabaseProbe(db),
//		observability.RedisProbe(redisClient),
//	)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// A failing required probe makes readiness answer 503. Other failures only
// degrade the result.
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//	handler := observability.InstrumentHandler(router, "teamsites")
package observability
