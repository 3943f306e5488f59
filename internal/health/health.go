// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness probes for the daemon.
// Liveness always answers 200 while the process runs; readiness reflects the
// stores and outbound dependencies the workflow needs.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/payflowd/payflow/internal/log"
	"github.com/payflowd/payflow/internal/store"
)

// Status is the aggregate or per-component probe result.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one component's probe outcome.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body served on both probe endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates component checkers behind the probe endpoints.
type Manager struct {
	version  string
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Ready runs all checkers. Ready is false if any component is unhealthy.
func (m *Manager) Ready(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		result := c.Check(ctx)
		resp.Checks[c.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ServeHealth is the liveness endpoint. Always 200 while the process runs.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady is the readiness endpoint; 503 until all components pass.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")
	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}
	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// SessionStoreChecker verifies the session store answers reads.
type SessionStoreChecker struct {
	sessions store.SessionStore
}

func NewSessionStoreChecker(s store.SessionStore) *SessionStoreChecker {
	return &SessionStoreChecker{sessions: s}
}

func (c *SessionStoreChecker) Name() string { return "session_store" }

func (c *SessionStoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.sessions.ListSessions(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// ScheduleStoreChecker verifies the schedule store answers reads.
type ScheduleStoreChecker struct {
	schedule store.ScheduleStore
}

func NewScheduleStoreChecker(s store.ScheduleStore) *ScheduleStoreChecker {
	return &ScheduleStoreChecker{schedule: s}
}

func (c *ScheduleStoreChecker) Name() string { return "schedule_store" }

func (c *ScheduleStoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.schedule.ListDueJobs(ctx, time.Now()); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// PingChecker wraps any dependency exposing a ping-style probe, reporting
// degraded rather than unhealthy because the workflow can queue work while
// an outbound dependency recovers.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
