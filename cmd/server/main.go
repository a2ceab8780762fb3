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
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/database"
	"github.com/stemsi/exammode/internal/handler"
	"github.com/stemsi/exammode/internal/logger"
	"github.com/stemsi/exammode/internal/middleware"
	"github.com/stemsi/exammode/internal/repository"
	"github.com/stemsi/exammode/internal/router"
	"github.com/stemsi/exammode/internal/service"
	"github.com/stemsi/exammode/internal/telemetry"
	"github.com/stemsi/exammode/internal/validator"
	"github.com/stemsi/exammode/internal/worker"
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
		Msg("Starting exam mode service")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Telemetry ─────────────────────────────────────────────────────
	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	providers.SetGlobal()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	courseRepo := repository.NewCourseRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	contentRepo := repository.NewContentRepository(pool, cfg.ContentBaseURL)
	sessionRepo := repository.NewExamSessionRepository(pool)
	attemptRepo := repository.NewCachedExamAttemptRepository(
		repository.NewExamAttemptRepository(pool), rdb, cfg.ActiveAttemptCacheTTL, log)
	profileRepo := repository.NewUserProfileRepository(pool)
	admissionLogRepo := repository.NewAdmissionLogRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, profileRepo)
	registry := service.NewExamSessionRegistry(sessionRepo, contentRepo)
	policy := service.NewEligibilityPolicy(courseRepo, enrollmentRepo)
	admission := service.NewAdmissionController(
		registry, policy, enrollmentRepo, attemptRepo,
		service.NewRedisEventPublisher(rdb), service.SystemClock{}, log,
	)
	sessionService := service.NewExamSessionService(sessionRepo, courseRepo, attemptRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		ExamMode: handler.NewExamModeHandler(admission, log),
		Staff:    handler.NewStaffHandler(sessionService, log),
		Monitor:  handler.NewMonitorHandler(rdb, sessionService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAdmissionAuditWorker(admissionLogRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)
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

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the audit queue to drain.
	workerCancel()
	workers.Wait()

	// 3. Flush telemetry.
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Telemetry shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
