// Package domain contains the core data types for the itinerary API.
// This package has zero external dependencies and is imported by every other
// internal package (store, planner, service, handler).
package domain

import "time"

// JobStatus is the lifecycle state of an itinerary generation job.
type JobStatus string

const (
	// StatusProcessing is the initial state: the job record exists and
	// background generation has been scheduled but has not finished.
	StatusProcessing JobStatus = "processing"

	// StatusCompleted means generation succeeded and the itinerary is stored.
	StatusCompleted JobStatus = "completed"

	// StatusFailed means generation failed; Error holds the reason.
	StatusFailed JobStatus = "failed"
)

// Terminal reports whether s is a final state. A job never leaves a
// terminal state; its record is immutable from then on.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one itinerary generation request and its lifecycle record.
// Exactly one document per job is persisted, keyed by ID.
type Job struct {
	ID           string     `json:"id"`
	Destination  string     `json:"destination"`
	DurationDays int        `json:"durationDays"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"` // nil until the job reaches a terminal state
	Itinerary    []Day      `json:"itinerary"`   // empty unless Status is completed
	Error        *string    `json:"error"`       // nil unless Status is failed
}

// Day is one day of a generated itinerary. Days are owned by their Job and
// have no independent lifecycle.
type Day struct {
	Day        int        `json:"day"` // 1-based position within the itinerary
	Theme      string     `json:"theme"`
	Activities []Activity `json:"activities"`
}

// Activity is a single scheduled item within a Day.
type Activity struct {
	Time        string `json:"time"`
	Description string `json:"description"`
	Location    string `json:"location"`
}
