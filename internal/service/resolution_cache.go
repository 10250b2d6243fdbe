package service

import (
	"context"
	"errors"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// ResolutionCache remembers canonical ids per catalog generation. Every
// ingestion write calls Invalidate, which starts a new generation, so a
// cached redirect never outlives one ingestion cycle.
type ResolutionCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, generation int64, courseID int) (canonicalID int, ok bool, err error)
	Set(ctx context.Context, generation int64, courseID, canonicalID int) error
	Invalidate(ctx context.Context) error
}

type redisResolutionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisResolutionCache(rdb *redis.Client, ttl time.Duration) ResolutionCache {
	return &redisResolutionCache{rdb: rdb, ttl: ttl}
}

func (c *redisResolutionCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, config.CacheKey.CatalogGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisResolutionCache) Get(ctx context.Context, generation int64, courseID int) (int, bool, error) {
	id, err := c.rdb.Get(ctx, config.CacheKey.ResolvedCourseKey(generation, courseID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (c *redisResolutionCache) Set(ctx context.Context, generation int64, courseID, canonicalID int) error {
	return c.rdb.Set(ctx, config.CacheKey.ResolvedCourseKey(generation, courseID), canonicalID, c.ttl).Err()
}

func (c *redisResolutionCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, config.CacheKey.CatalogGenerationKey()).Err()
}

// NopResolutionCache never stores anything.
type NopResolutionCache struct{}

func (NopResolutionCache) Generation(context.Context) (int64, error) { return 0, nil }

func (NopResolutionCache) Get(context.Context, int64, int) (int, bool, error) { return 0, false, nil }

func (NopResolutionCache) Set(context.Context, int64, int, int) error { return nil }

func (NopResolutionCache) Invalidate(context.Context) error { return nil }
