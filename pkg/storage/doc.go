// Package storage provides the database, Redis and object storage connections
// shared by the site server and the worker.
//
// # Overview
//
// Two SQL drivers are supported. PostgreSQL (lib/pq) is the production
// backend; SQLite (mattn/go-sqlite3) serves single-node deployments and tests.
// Both run the same schema through embedded goose migrations, one directory
// per dialect:
//
//	db, err := storage.Open(ctx, cfg)
//
// Queries in the rest of the module use $N placeholders in ascending order of
// first appearance, pass timestamps from Go, and avoid row locks, so the same
// SQL text runs on both drivers.
//
// # Redis
//
//	client, err := storage.NewRedisClient(ctx, cfg)
//
// Redis holds server-side sessions, the authorization code replay guard, and
// rate limiter counters.
//
// # Object Storage
//
//	store, err := storage.NewS3ObjectStore(ctx, cfg)
//	checksum, err := store.Put(ctx, "sites/acme/index.html", page, "text/html; charset=utf-8")
//
// # Errors
//
// IsUniqueViolation recognizes unique-constraint failures from either driver.
package storage
