package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/database"
	"github.com/coursetalk/coursetalk-backend/internal/handler"
	"github.com/coursetalk/coursetalk-backend/internal/logger"
	"github.com/coursetalk/coursetalk-backend/internal/middleware"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/coursetalk/coursetalk-backend/internal/router"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/coursetalk/coursetalk-backend/internal/validator"
	"github.com/coursetalk/coursetalk-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting CourseTalk Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Department Aliases ───────────────────────────────────────
	deptAliases, err := coursecode.LoadDepartmentAliases(cfg.DepartmentAliasesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.DepartmentAliasesFile).Msg("Failed to load department aliases")
	}
	normalizer := coursecode.NewNormalizer(deptAliases)
	log.Info().Int("groups", deptAliases.GroupCount()).Msg("Department aliases loaded")

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
	aliasRepo := repository.NewAliasRepository(pool)
	crossListRepo := repository.NewCrossListRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	resolutionCache := service.NewRedisResolutionCache(rdb, cfg.ResolveCacheTTL)
	aliasQueue := service.NewRedisAliasQueue(rdb)

	identityService := service.NewCourseIdentityService(courseRepo, aliasRepo, resolutionCache, log)
	aggregator := service.NewCrossListAggregator(courseRepo, crossListRepo, reviewRepo, normalizer, log)
	courseService := service.NewCourseService(identityService, aggregator, courseRepo, normalizer, cfg.SearchResultLimit, log)
	ingestService := service.NewAliasIngestService(courseRepo, aliasRepo, crossListRepo, aliasQueue, resolutionCache, normalizer, log)
	verifier := service.NewTokenVerifier(cfg.JWTSecret)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Course: handler.NewCourseHandler(courseService, log),
		Alias:  handler.NewAliasHandler(ingestService, log),
		System: handler.NewSystemHandler(pool, rdb, log),
	}

	searchLimiter := middleware.NewRateLimiter(cfg.SearchRateLimit, time.Minute)
	defer searchLimiter.Stop()

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	aliasWorker := worker.NewAliasIngestWorker(rdb, aliasRepo, aliasQueue, resolutionCache, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		aliasWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(verifier, handlers, searchLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// 2. Stop the alias worker; it flushes its pending batch before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
