package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
)

// storagePingTimeout bounds the storage check of the readiness probe.
const storagePingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker serves the liveness and readiness probes.
type HealthChecker struct {
	ready        atomic.Bool
	shuttingDown atomic.Bool

	// store is pinged by readiness checks; nil skips the check.
	store     Pinger
	startTime time.Time
}

// NewHealthChecker returns a checker that reports not ready until SetReady
// is called.
func NewHealthChecker(store Pinger) *HealthChecker {
	return &HealthChecker{
		store:     store,
		startTime: time.Now(),
	}
}

// SetReady sets the readiness state of the server. The serve command marks
// the server ready once its listener is bound.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// MarkShuttingDown makes readiness fail so load balancers stop routing
// traffic while in-flight requests drain.
func (h *HealthChecker) MarkShuttingDown() {
	h.shuttingDown.Store(true)
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Storage string `json:"storage,omitempty"`
}

// pingStore returns "" when there is no store to check.
func (h *HealthChecker) pingStore(ctx context.Context) string {
	if h.store == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return healthStatusUnavailable
	}
	return healthStatusOK
}

// checks runs every readiness check and reports whether all of them passed.
func (h *HealthChecker) checks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.shuttingDown.Load() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	if status := h.pingStore(ctx); status != "" {
		checks["storage"] = status
		ok = ok && status == healthStatusOK
	}
	return checks, ok
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It succeeds as long as the process
// answers HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz: 503 while not ready, while shutting down
// or when the store does not answer a ping.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.checks(r.Context())
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := DetailedHealthResponse{
			Status:  healthStatusOK,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			Storage: h.pingStore(r.Context()),
		}

		code := http.StatusServiceUnavailable
		switch {
		case !h.ready.Load():
			resp.Status = healthStatusNotReady
		case h.shuttingDown.Load():
			resp.Status = healthStatusShuttingDown
		case resp.Storage == healthStatusUnavailable:
			resp.Status = healthStatusNotReady
		default:
			code = http.StatusOK
		}
		writeHealth(w, code, resp)
	})
}
