package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera-app/backend/internal/domain"
	"github.com/itinera-app/backend/internal/service"
	"github.com/itinera-app/backend/internal/task"
)

// fakeStore is an in-memory DocumentStore recording every call.
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	patches []map[string]any

	createErr error
	patchErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]any{}}
}

func (f *fakeStore) CreateDocument(_ context.Context, id string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[id] = doc
	return nil
}

func (f *fakeStore) PatchDocument(_ context.Context, id string, partial map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, partial)
	if f.patchErr != nil {
		return f.patchErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrStore
	}
	for k, v := range partial {
		doc[k] = v
	}
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// fakeGenerator returns a scripted result.
type fakeGenerator struct {
	days []domain.Day
	err  error
}

func (f *fakeGenerator) Generate(context.Context, string, int) ([]domain.Day, error) {
	return f.days, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newService wires a JobService with fakes. The returned supervisor lets
// tests wait for the background generation deterministically.
func newService(store *fakeStore, gen *fakeGenerator) (*service.JobService, *task.Supervisor) {
	sup := task.NewSupervisor(discardLogger())
	return service.NewJobService(store, gen, sup, discardLogger()), sup
}

func drain(t *testing.T, sup *task.Supervisor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Wait(ctx))
}

var sampleDays = []domain.Day{
	{Day: 1, Theme: "Museums", Activities: []domain.Activity{
		{Time: "09:00", Description: "Louvre", Location: "Rue de Rivoli"},
	}},
	{Day: 2, Theme: "Gardens", Activities: []domain.Activity{
		{Time: "10:00", Description: "Luxembourg Gardens", Location: "6th arrondissement"},
	}},
}

// TestCreate_persistsProcessingRecordBeforeReturning verifies the only
// cross-call ordering contract: the initial record is readable as soon as
// Create returns, before the background task has done anything.
func TestCreate_persistsProcessingRecordBeforeReturning(t *testing.T) {
	store := newFakeStore()
	// Generator blocks until released, so the record observed below is
	// guaranteed to predate the terminal update.
	release := make(chan struct{})
	blockingGen := &blockingGenerator{release: release, days: sampleDays}
	sup := task.NewSupervisor(discardLogger())
	svc := service.NewJobService(store, blockingGen, sup, discardLogger())

	id, err := svc.Create(context.Background(), "Paris, France", 3)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(id))

	job, err := svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", job.Destination)
	assert.Equal(t, 3, job.DurationDays)
	assert.Equal(t, domain.StatusProcessing, job.Status)
	assert.Empty(t, job.Itinerary)
	assert.Nil(t, job.Error)
	assert.Nil(t, job.CompletedAt)
	assert.False(t, job.CreatedAt.IsZero())

	close(release)
	drain(t, sup)
}

type blockingGenerator struct {
	release chan struct{}
	days    []domain.Day
}

func (b *blockingGenerator) Generate(context.Context, string, int) ([]domain.Day, error) {
	<-b.release
	return b.days, nil
}

// TestCreate_validationBeforeAnyIO verifies bad input is rejected with a
// validation error and nothing is persisted or scheduled.
func TestCreate_validationBeforeAnyIO(t *testing.T) {
	cases := []struct {
		name        string
		destination string
		days        int
	}{
		{"empty destination", "", 3},
		{"whitespace destination", "   ", 3},
		{"zero days", "Paris", 0},
		{"negative days", "Paris", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc, sup := newService(store, &fakeGenerator{days: sampleDays})

			_, err := svc.Create(context.Background(), tc.destination, tc.days)

			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, store.createCount())
			drain(t, sup)
		})
	}
}

// TestCreate_storeFailurePropagates verifies a failed initial write surfaces
// to the caller and schedules nothing.
func TestCreate_storeFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.createErr = domain.ErrStore
	svc, sup := newService(store, &fakeGenerator{days: sampleDays})

	_, err := svc.Create(context.Background(), "Paris", 3)

	require.ErrorIs(t, err, domain.ErrStore)
	drain(t, sup)
	assert.Empty(t, store.patches)
}

// TestBackgroundSuccess verifies the processing -> completed transition with
// the generated itinerary and a completion timestamp.
func TestBackgroundSuccess(t *testing.T) {
	store := newFakeStore()
	svc, sup := newService(store, &fakeGenerator{days: sampleDays})

	id, err := svc.Create(context.Background(), "Paris, France", 2)
	require.NoError(t, err)
	drain(t, sup)

	job, err := svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, sampleDays, job.Itinerary)
	assert.Nil(t, job.Error)
	require.NotNil(t, job.CompletedAt)
	assert.False(t, job.CompletedAt.Before(job.CreatedAt))

	require.Len(t, store.patches, 1)
	patch := store.patches[0]
	assert.ElementsMatch(t, []string{"status", "itinerary", "completedAt"}, keys(patch))
}

// TestBackgroundFailure verifies the processing -> failed transition with the
// error message recorded and the itinerary left empty.
func TestBackgroundFailure(t *testing.T) {
	store := newFakeStore()
	genErr := errors.New("malformed generation response: invalid character 'S'")
	svc, sup := newService(store, &fakeGenerator{err: genErr})

	id, err := svc.Create(context.Background(), "Paris", 2)
	require.NoError(t, err)
	drain(t, sup)

	job, err := svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Empty(t, job.Itinerary)
	require.NotNil(t, job.Error)
	assert.Equal(t, genErr.Error(), *job.Error)
	assert.NotNil(t, job.CompletedAt)

	require.Len(t, store.patches, 1)
	assert.ElementsMatch(t, []string{"status", "error", "completedAt"}, keys(store.patches[0]))
}

// TestBackgroundPatchFailureIsBestEffort verifies that a failed terminal
// update is swallowed: the job stays processing and nothing panics or retries.
func TestBackgroundPatchFailureIsBestEffort(t *testing.T) {
	store := newFakeStore()
	store.patchErr = domain.ErrStore
	svc, sup := newService(store, &fakeGenerator{days: sampleDays})

	id, err := svc.Create(context.Background(), "Paris", 2)
	require.NoError(t, err)
	drain(t, sup)

	assert.Len(t, store.patches, 1) // exactly one attempt, no retry

	job, err := svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, job.Status)
}

// TestGetStatus_unknownID verifies the not-found path.
func TestGetStatus_unknownID(t *testing.T) {
	svc, sup := newService(newFakeStore(), &fakeGenerator{})
	defer drain(t, sup)

	_, err := svc.GetStatus(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestCreate_uniqueIDs verifies ids do not collide across jobs.
func TestCreate_uniqueIDs(t *testing.T) {
	store := newFakeStore()
	svc, sup := newService(store, &fakeGenerator{days: sampleDays})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := svc.Create(context.Background(), "Paris", 1)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
	drain(t, sup)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
