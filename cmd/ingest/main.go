package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/database"
	"github.com/coursetalk/coursetalk-backend/internal/ingest"
	"github.com/coursetalk/coursetalk-backend/internal/logger"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/rs/zerolog"
)

func main() {
	file := flag.String("file", "", "catalog export to apply (.yaml, .yml or .xlsx)")
	source := flag.String("source", "", "provenance tag stored on alias rows (defaults to the manifest's source)")
	selfAliases := flag.Bool("self-aliases", false, "insert a self alias for every course without one")
	flag.Parse()

	if *file == "" && !*selfAliases {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	// Logs go to stderr; the report is printed on stdout.
	log := logger.New(os.Stderr, cfg.LogLevel, "auto")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Load Department Aliases ───────────────────────────────────────
	deptAliases, err := coursecode.LoadDepartmentAliases(cfg.DepartmentAliasesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load department aliases")
	}
	normalizer := coursecode.NewNormalizer(deptAliases)

	// ─── Read Catalog ──────────────────────────────────────────────────
	manifest := &ingest.Manifest{}
	if *file != "" {
		manifest, err = ingest.Load(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("Failed to read catalog")
		}
		log.Info().
			Str("file", *file).
			Int("groups", len(manifest.Groups)).
			Int("aliases", len(manifest.Aliases)).
			Msg("Catalog loaded")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Redis only carries the catalog generation here; without it the
	// server's cached resolutions simply age out by TTL.
	var cache service.ResolutionCache
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached resolutions will expire by TTL only")
	} else {
		defer rdb.Close()
		cache = service.NewRedisResolutionCache(rdb, cfg.ResolveCacheTTL)
	}

	// ─── Apply ─────────────────────────────────────────────────────────
	courseRepo := repository.NewCourseRepository(pool)
	ingestService := service.NewAliasIngestService(
		courseRepo,
		repository.NewAliasRepository(pool),
		repository.NewCrossListRepository(pool),
		nil, // write directly; this run is exclusive
		cache,
		normalizer,
		log,
	)

	started := time.Now()
	report, err := ingest.NewApplier(courseRepo, ingestService, normalizer, *source, log).
		Apply(ctx, manifest, *selfAliases)
	if err != nil {
		printReport(log, report)
		log.Fatal().Err(err).Msg("Ingestion aborted")
	}

	printReport(log, report)
	log.Info().Dur("took", time.Since(started)).Msg("Ingestion complete")
}

func printReport(log zerolog.Logger, report *ingest.Report) {
	if report == nil {
		return
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode report")
		return
	}
	fmt.Println(string(out))
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
