// SPDX-License-Identifier: MIT

// Package api exposes the payment-preparation workflow over HTTP. Sessions
// are the resource: create one from a command or document, read it back
// while it waits at the confirmation gate, post a decision to resume it, or
// delete it to cancel. Scheduled jobs are retrievable and cancelable until
// they run.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/payflowd/payflow/internal/health"
	"github.com/payflowd/payflow/internal/store"
	"github.com/payflowd/payflow/internal/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries the HTTP-facing settings.
type Config struct {
	// APIToken guards every /api route when non-empty.
	APIToken string
	// RateLimit is the per-IP request budget per minute; <=0 disables.
	RateLimit int
	// Version is reported on the health endpoints.
	Version string
}

// Server hosts the workflow API.
type Server struct {
	engine    *workflow.Engine
	schedule  store.ScheduleStore
	healthMgr *health.Manager
	cfg       Config
}

// New wires the HTTP server against a workflow engine.
func New(engine *workflow.Engine, schedule store.ScheduleStore, healthMgr *health.Manager, cfg Config) *Server {
	return &Server{
		engine:    engine,
		schedule:  schedule,
		healthMgr: healthMgr,
		cfg:       cfg,
	}
}

// Router builds the chi router with the full middleware stack applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(s.cfg.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.healthMgr.ServeHealth)
	r.Get("/readyz", s.healthMgr.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.APIToken))

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/decision", s.handleDecision)
		r.Delete("/sessions/{id}", s.handleCancelSession)

		r.Get("/jobs/{id}", s.handleGetJob)
		r.Delete("/jobs/{id}", s.handleCancelJob)
	})

	return r
}
