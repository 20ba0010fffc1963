package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/backend"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/generator"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/monitor"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/router"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
	"github.com/stemsi/exam-portal/internal/validator"
	"github.com/stemsi/exam-portal/internal/worker"
)

const (
	reapInterval  = time.Minute
	monitorBuffer = 1024
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("backend", cfg.BackendURL).
		Msg("Starting Exam Portal Gateway")

	exam, err := config.LoadExamConfig(cfg.ExamConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam configuration")
	}
	log.Info().
		Int("total_questions", exam.TotalQuestions).
		Int("duration_minutes", exam.DurationMinutes).
		Strs("classes", exam.Classes).
		Strs("sections", exam.Sections).
		Msg("Exam configuration loaded")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup(exam)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Collaborators ─────────────────────────────────────────────────
	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)

	gen, err := generator.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	switch {
	case errors.Is(err, generator.ErrNotConfigured):
		log.Warn().Msg("GEMINI_API_KEY not set, AI question generation disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create question generator")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	jobRepo := repository.NewGenerationJobRepository(rdb, cfg.GenerationJobTTL)

	// ─── Sessions & Monitor ────────────────────────────────────────────
	publisher := monitor.NewPublisher(rdb, monitorBuffer, log)
	registry := session.NewRegistry(exam, api, api, api, cfg.SessionIdleTTL, log,
		session.WithObserver(publisher.Observe),
	)

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	adminService := service.NewAdminService(authService, log)
	portalService := service.NewPortalService(registry, authService, log)
	rosterService := service.NewRosterService(api, log)
	resultService := service.NewResultService(api, log)

	var jobs service.JobQueue
	if gen != nil {
		jobs = jobRepo
	}
	questionService := service.NewQuestionService(api, jobs, exam, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(adminService),
		Config:   handler.NewConfigHandler(exam),
		Portal:   handler.NewPortalHandler(portalService, log),
		WS:       handler.NewWSHandler(portalService, cfg, log),
		Roster:   handler.NewRosterHandler(rosterService),
		Result:   handler.NewResultHandler(resultService, log),
		Question: handler.NewQuestionHandler(questionService),
		Monitor:  handler.NewMonitorHandler(publisher, log),
		System:   handler.NewSystemHandler(jobRepo, registry, publisher, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	spawn := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(workerCtx)
		}()
	}

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)

	spawn(publisher.Run)
	spawn(func(ctx context.Context) { registry.Run(ctx, reapInterval) })
	spawn(loginLimiter.Run)
	if gen != nil {
		spawn(worker.NewGenerationWorker(jobRepo, gen, questionService, log).Start)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, loginLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; the registry abandons open sessions and
	// the generation worker requeues an interrupted job.
	workerCancel()
	wg.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
