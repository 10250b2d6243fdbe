package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports dependency health and catalog ingest state.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type catalogStatus struct {
	Uptime          string `json:"uptime"`
	Goroutines      int    `json:"goroutines"`
	GoVersion       string `json:"go_version"`
	Generation      int64  `json:"catalog_generation"`
	AliasQueueDepth int64  `json:"alias_queue_depth"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("postgres health check failed")
		checks["postgres"] = "unavailable"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("redis health check failed")
		checks["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		response.FailWithData(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable,
			gin.H{"status": "degraded", "checks": checks})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

// CatalogStatus godoc
// GET /api/v1/admin/system/catalog
func (h *SystemHandler) CatalogStatus(c *gin.Context) {
	ctx := c.Request.Context()

	status := catalogStatus{
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	// ── Generation + queue depth (pipelined) ──
	pipe := h.rdb.Pipeline()
	genCmd := pipe.Get(ctx, config.CacheKey.CatalogGenerationKey())
	queueCmd := pipe.LLen(ctx, config.WorkerKey.AliasIngestQueue)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		h.log.Warn().Err(err).Msg("catalog status read failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
		return
	}
	status.Generation, _ = genCmd.Int64()
	status.AliasQueueDepth, _ = queueCmd.Result()

	response.Success(c, http.StatusOK, status)
}
