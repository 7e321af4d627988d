package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/itinera-app/backend/internal/domain"
)

// createJobRequest is the body of POST /. Decoding durationDays into an int
// rejects fractional and non-numeric values before any business logic runs.
type createJobRequest struct {
	Destination  string `json:"destination"`
	DurationDays int    `json:"durationDays"`
}

type createJobResponse struct {
	JobID string `json:"jobId"`
}

// jobResponse is the body of GET /status/{jobID}. CompletedAt and Error are
// serialized as explicit nulls while unset, and Itinerary is always an
// array, so polling clients see a stable shape across the whole lifecycle.
type jobResponse struct {
	Destination  string           `json:"destination"`
	DurationDays int              `json:"durationDays"`
	Status       domain.JobStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	CompletedAt  *time.Time       `json:"completedAt"`
	Itinerary    []domain.Day     `json:"itinerary"`
	Error        *string          `json:"error"`
}

// CreateJob handles POST /. It accepts the job and returns 202 immediately;
// generation happens in the background.
func (s *Server) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody("invalid request body"))
		return
	}

	id, err := s.jobs.Create(r.Context(), req.Destination, req.DurationDays)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, validationBody(err))
			return
		}
		s.log.Error("create job failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, internalBody())
		return
	}

	writeJSON(w, http.StatusAccepted, createJobResponse{JobID: id})
}

// GetJobStatus handles GET /status/{jobID}.
func (s *Server) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	job, err := s.jobs.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, notFoundBody("job not found"))
			return
		}
		s.log.Error("get job status failed", "job_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, internalBody())
		return
	}

	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// jobToResponse converts a domain.Job into its API representation.
func jobToResponse(job domain.Job) jobResponse {
	resp := jobResponse{
		Destination:  job.Destination,
		DurationDays: job.DurationDays,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
		Itinerary:    job.Itinerary,
		Error:        job.Error,
	}
	if resp.Itinerary == nil {
		resp.Itinerary = []domain.Day{}
	}
	return resp
}
