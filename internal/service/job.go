// Package service contains the business logic for the itinerary API.
// JobService owns the job lifecycle: it validates creation requests,
// persists the initial record, schedules background generation, and applies
// the terminal update. No HTTP and no wire encoding live here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itinera-app/backend/internal/domain"
	"github.com/itinera-app/backend/internal/task"
	"github.com/itinera-app/backend/internal/telemetry"
)

// DocumentStore is the persistence surface JobService depends on.
type DocumentStore interface {
	CreateDocument(ctx context.Context, id string, doc map[string]any) error
	PatchDocument(ctx context.Context, id string, partial map[string]any) error
	GetDocument(ctx context.Context, id string) (map[string]any, error)
}

// ItineraryGenerator produces the day-by-day plan for a destination.
type ItineraryGenerator interface {
	Generate(ctx context.Context, destination string, durationDays int) ([]domain.Day, error)
}

// JobService implements the job state machine:
// processing -> completed on generation success,
// processing -> failed on any unrecoverable generation error.
// Terminal states are never left.
type JobService struct {
	store     DocumentStore
	generator ItineraryGenerator
	tasks     *task.Supervisor
	log       *slog.Logger
	now       func() time.Time
}

// NewJobService constructs a JobService.
func NewJobService(store DocumentStore, generator ItineraryGenerator, tasks *task.Supervisor, log *slog.Logger) *JobService {
	return &JobService{
		store:     store,
		generator: generator,
		tasks:     tasks,
		log:       log,
		now:       time.Now,
	}
}

// Create validates the request, persists the initial processing record, and
// schedules background generation. The create write completes before Create
// returns, so a status lookup for the returned id never reports not-found.
// The caller is not blocked on generation.
func (s *JobService) Create(ctx context.Context, destination string, durationDays int) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}
	if durationDays < 1 {
		return "", fmt.Errorf("%w: durationDays must be a positive integer", domain.ErrValidation)
	}

	id := uuid.NewString()
	doc := map[string]any{
		"destination":  destination,
		"durationDays": durationDays,
		"status":       string(domain.StatusProcessing),
		"createdAt":    s.now().UTC().Format(time.RFC3339Nano),
		"completedAt":  nil,
		"itinerary":    []any{},
		"error":        nil,
	}
	if err := s.store.CreateDocument(ctx, id, doc); err != nil {
		return "", err
	}
	telemetry.JobsCreated.Inc()
	s.log.Info("job created", "job_id", id, "destination", destination, "duration_days", durationDays)

	// The background task outlives the request, so it must not inherit the
	// request context. The supervisor keeps the process alive until it ends.
	s.tasks.Go("generate-itinerary", func() {
		s.process(context.Background(), id, destination, durationDays)
	})

	return id, nil
}

// GetStatus reads and returns the current job record.
// Returns domain.ErrNotFound when no record exists for id.
func (s *JobService) GetStatus(ctx context.Context, id string) (domain.Job, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return jobFromDoc(id, doc), nil
}

// process runs the generation and applies the terminal update. The update is
// best-effort: if the patch fails the job stays visibly "processing" forever;
// there is no retry or escalation beyond a log line and a counter.
func (s *JobService) process(ctx context.Context, id, destination string, durationDays int) {
	itinerary, err := s.generator.Generate(ctx, destination, durationDays)
	completedAt := s.now().UTC().Format(time.RFC3339Nano)

	var patch map[string]any
	if err != nil {
		telemetry.JobsFailed.Inc()
		s.log.Error("itinerary generation failed", "job_id", id, "error", err)
		patch = map[string]any{
			"status":      string(domain.StatusFailed),
			"error":       err.Error(),
			"completedAt": completedAt,
		}
	} else {
		telemetry.JobsCompleted.Inc()
		s.log.Info("itinerary generated", "job_id", id, "days", len(itinerary))
		patch = map[string]any{
			"status":      string(domain.StatusCompleted),
			"itinerary":   itineraryToDoc(itinerary),
			"completedAt": completedAt,
		}
	}

	if err := s.store.PatchDocument(ctx, id, patch); err != nil {
		telemetry.PatchFailures.Inc()
		s.log.Error("terminal job update failed", "job_id", id, "error", err)
	}
}

// --- document mapping --------------------------------------------------------

// itineraryToDoc converts days into the plain nested form the store encodes.
func itineraryToDoc(days []domain.Day) []any {
	out := make([]any, 0, len(days))
	for _, d := range days {
		activities := make([]any, 0, len(d.Activities))
		for _, a := range d.Activities {
			activities = append(activities, map[string]any{
				"time":        a.Time,
				"description": a.Description,
				"location":    a.Location,
			})
		}
		out = append(out, map[string]any{
			"day":        d.Day,
			"theme":      d.Theme,
			"activities": activities,
		})
	}
	return out
}

// jobFromDoc rebuilds a Job from a decoded document. Stored documents are
// written only by this service, so fields with unexpected types are dropped
// rather than treated as errors.
func jobFromDoc(id string, doc map[string]any) domain.Job {
	job := domain.Job{
		ID:        id,
		Itinerary: []domain.Day{},
	}
	if v, ok := doc["destination"].(string); ok {
		job.Destination = v
	}
	if v, ok := docInt(doc["durationDays"]); ok {
		job.DurationDays = v
	}
	if v, ok := doc["status"].(string); ok {
		job.Status = domain.JobStatus(v)
	}
	if v, ok := doc["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			job.CreatedAt = t
		}
	}
	if v, ok := doc["completedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			job.CompletedAt = &t
		}
	}
	if v, ok := doc["error"].(string); ok {
		job.Error = &v
	}
	if rawDays, ok := doc["itinerary"].([]any); ok {
		job.Itinerary = daysFromDoc(rawDays)
	}
	return job
}

// docInt reads an integer field. The wire codec decodes integers as int64,
// while freshly written documents still hold Go ints.
func docInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func daysFromDoc(rawDays []any) []domain.Day {
	days := make([]domain.Day, 0, len(rawDays))
	for _, rawDay := range rawDays {
		obj, ok := rawDay.(map[string]any)
		if !ok {
			continue
		}
		day := domain.Day{Activities: []domain.Activity{}}
		if v, ok := docInt(obj["day"]); ok {
			day.Day = v
		}
		if v, ok := obj["theme"].(string); ok {
			day.Theme = v
		}
		if rawActs, ok := obj["activities"].([]any); ok {
			for _, rawAct := range rawActs {
				act, ok := rawAct.(map[string]any)
				if !ok {
					continue
				}
				var a domain.Activity
				a.Time, _ = act["time"].(string)
				a.Description, _ = act["description"].(string)
				a.Location, _ = act["location"].(string)
				day.Activities = append(day.Activities, a)
			}
		}
		days = append(days, day)
	}
	return days
}
