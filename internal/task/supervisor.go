// Package task tracks detached background goroutines so the process can
// drain them on shutdown. Work submitted here is fire-and-forget: nothing
// cancels it and nothing observes its result except the task itself.
package task

import (
	"context"
	"log/slog"
	"sync"
)

// Supervisor owns background tasks spawned by request handling. The server
// keeps the process alive until Wait returns, so a task scheduled before
// shutdown gets a chance to finish.
type Supervisor struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewSupervisor constructs a Supervisor that logs task panics via log.
func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Go runs fn on its own goroutine and tracks it until completion.
// A panic in fn is logged and absorbed; it must not take down the server.
func (s *Supervisor) Go(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every tracked task has finished or ctx expires.
// Returns ctx.Err() when the deadline wins, nil otherwise.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
