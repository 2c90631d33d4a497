package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

// ErrDegraded marks a probe failure that leaves the server usable
var ErrDegraded = errors.New("degraded")

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Probe checks one dependency. A failing required probe makes the server
// unready; any other failure only degrades it.
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// DatabaseProbe pings the database and runs a trivial query. Teams, sites
// and content all live there, so it is required.
func DatabaseProbe(db *sql.DB) Probe {
	return Probe{
		Name:     "database",
		Required: true,
		Check: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			var one int
			if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
				return err
			}
			if stats := db.Stats(); stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
				return errors.Join(ErrDegraded, errors.New("connection pool exhausted"))
			}
			return nil
		},
	}
}

// RedisProbe pings Redis. Without it sessions resolve as signed out and the
// auth rate limiter fails open, so the server keeps serving public pages.
func RedisProbe(client *redis.Client) Probe {
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// HealthChecker reports liveness and readiness of the site server
type HealthChecker struct {
	probes  []Probe
	version string
	now     func() time.Time
}

// NewHealthChecker creates a health checker running the given probes
func NewHealthChecker(version string, probes ...Probe) *HealthChecker {
	return &HealthChecker{
		probes:  probes,
		version: version,
		now:     time.Now,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness always answers 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{Status: StatusHealthy, Timestamp: h.now(), Version: h.version})
}

// Readiness runs every probe and answers 503 when a required one fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

// Check runs the probes concurrently and folds their results
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.probes)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, probe := range h.probes {
		probe := probe
		g.Go(func() error {
			dep := h.run(gctx, probe)
			mu.Lock()
			defer mu.Unlock()
			status.Dependencies[probe.Name] = dep
			switch {
			case dep.Status == StatusHealthy:
			case probe.Required && dep.Status == StatusUnhealthy:
				status.Status = StatusUnhealthy
			case status.Status != StatusUnhealthy:
				status.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return status
}

func (h *HealthChecker) run(ctx context.Context, probe Probe) DependencyStatus {
	start := h.now()
	err := probe.Check(ctx)
	dep := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: start,
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrDegraded):
		dep.Status = StatusDegraded
		dep.Message = err.Error()
	default:
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
