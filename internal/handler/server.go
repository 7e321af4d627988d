// Package handler implements the HTTP handlers for the itinerary API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, job.go) but share the same Server struct so they can
// access its dependencies.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/itinera-app/backend/internal/domain"
)

// JobServicer defines the business operations the job handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the service layer or any network.
type JobServicer interface {
	Create(ctx context.Context, destination string, durationDays int) (string, error)
	GetStatus(ctx context.Context, id string) (domain.Job, error)
}

// Server implements all API endpoints.
type Server struct {
	jobs JobServicer
	log  *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(jobs JobServicer, log *slog.Logger) *Server {
	return &Server{jobs: jobs, log: log}
}

// Register mounts all routes on r. Tests and main wire the router the same way.
func (s *Server) Register(r chi.Router) {
	r.Post("/", s.CreateJob)
	r.Get("/status/{jobID}", s.GetJobStatus)
	r.Get("/healthz", s.GetHealth)
}

// writeJSON marshals v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
