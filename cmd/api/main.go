// Package main is the entry point for the itinerary API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/itinera-app/backend/internal/auth"
	"github.com/itinera-app/backend/internal/config"
	"github.com/itinera-app/backend/internal/handler"
	"github.com/itinera-app/backend/internal/middleware"
	"github.com/itinera-app/backend/internal/planner"
	"github.com/itinera-app/backend/internal/service"
	"github.com/itinera-app/backend/internal/store"
	"github.com/itinera-app/backend/internal/task"
	"github.com/itinera-app/backend/internal/telemetry"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog is the stdlib structured logger introduced in Go 1.21.
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Dependencies -----------------------------------------------------
	// The signer is built once at startup so a broken key fails fast, but
	// tokens themselves are minted fresh for every store call.
	signer, err := auth.NewRSASigner([]byte(cfg.ServiceAccountKey))
	if err != nil {
		slog.Error("failed to parse service account key", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewTokenProvider(cfg.ServiceAccountEmail, signer)
	documents := store.NewClient(cfg.ProjectID, cfg.Collection, tokens)
	generator := planner.NewGenerator(cfg.GeminiAPIKey, cfg.GeminiModel)

	// The supervisor owns the detached generation tasks; shutdown below
	// waits on it so accepted jobs get a chance to finish.
	tasks := task.NewSupervisor(logger)
	jobs := service.NewJobService(documents, generator, tasks, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body size limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(jobs, logger).Register(r)
	r.Mount("/metrics", telemetry.Handler())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, give in-flight requests up to
	// 15 seconds, then wait for background generations to drain. Generation
	// retries alone can take several seconds, hence the longer task budget.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	taskCtx, taskCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer taskCancel()
	if err := tasks.Wait(taskCtx); err != nil {
		slog.Warn("background tasks did not finish before deadline", "error", err)
	}

	slog.Info("server stopped")
}
