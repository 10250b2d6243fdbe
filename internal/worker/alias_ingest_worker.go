package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AliasBatchSize    = 100
	AliasBatchTimeout = 2 * time.Second
	AliasPollTimeout  = 1 * time.Second
)

// AliasIngestWorker drains alias_ingest_queue into course_code_aliases.
type AliasIngestWorker struct {
	rdb       *redis.Client
	aliasRepo repository.AliasRepository
	queue     service.AliasQueue
	cache     service.ResolutionCache
	log       zerolog.Logger
}

func NewAliasIngestWorker(
	rdb *redis.Client,
	aliasRepo repository.AliasRepository,
	queue service.AliasQueue,
	cache service.ResolutionCache,
	log zerolog.Logger,
) *AliasIngestWorker {
	if cache == nil {
		cache = service.NopResolutionCache{}
	}
	return &AliasIngestWorker{
		rdb:       rdb,
		aliasRepo: aliasRepo,
		queue:     queue,
		cache:     cache,
		log:       log.With().Str("component", "alias_ingest_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AliasIngestWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AliasIngestWorker started")

	batch := make([]model.CourseCodeAlias, 0, AliasBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AliasBatchSize || time.Since(lastFlush) >= AliasBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AliasPollTimeout, config.WorkerKey.AliasIngestQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			a, ok := w.decode(item[1])
			if !ok {
				continue
			}
			batch = append(batch, a)
		}
	}
}

func (w *AliasIngestWorker) decode(raw string) (model.CourseCodeAlias, bool) {
	var a model.CourseCodeAlias
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return a, false
	}
	if strings.TrimSpace(a.SourceCode) == "" || a.CanonicalCourseID <= 0 {
		w.log.Warn().Str("source_code", a.SourceCode).Int("canonical_course_id", a.CanonicalCourseID).
			Msg("dropping alias without source code or canonical course")
		return a, false
	}
	if a.LastSeenAt.IsZero() {
		a.LastSeenAt = time.Now()
	}
	return a, true
}

// ----------------------------------------------------------------
// Batch upsert wrapper
// ----------------------------------------------------------------

// flushSafe writes one batch and starts a new catalog generation when
// anything landed. Rows that fail on their own are requeued, except
// constraint violations, which would fail forever.
func (w *AliasIngestWorker) flushSafe(ctx context.Context, batch []model.CourseCodeAlias) {
	if len(batch) == 0 {
		return
	}

	written := 0
	if err := w.aliasRepo.BulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk alias upsert failed, using fallback")

		var retry []model.CourseCodeAlias
		for i := range batch {
			a := batch[i]
			err := w.aliasRepo.Upsert(ctx, &a)
			switch {
			case err == nil:
				written++
			case isConstraintViolation(err):
				w.log.Error().Err(err).Str("source_code", a.SourceCode).
					Int("canonical_course_id", a.CanonicalCourseID).Msg("alias rejected by store, dropping")
			default:
				w.log.Error().Err(err).Str("source_code", a.SourceCode).Msg("alias upsert failed, requeueing")
				retry = append(retry, a)
			}
		}

		if len(retry) > 0 && w.queue != nil {
			if err := w.queue.Push(ctx, retry); err != nil {
				w.log.Error().Err(err).Int("count", len(retry)).Msg("requeue failed, aliases lost")
			}
		}
	} else {
		written = len(batch)
	}

	if written == 0 {
		return
	}
	if err := w.cache.Invalidate(ctx); err != nil {
		w.log.Error().Err(err).Msg("failed to bump catalog generation")
	}
	w.log.Debug().Int("written", written).Msg("alias batch flushed")
}

// isConstraintViolation reports SQLSTATE class 23 errors (foreign key,
// unique, not null, check).
func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
