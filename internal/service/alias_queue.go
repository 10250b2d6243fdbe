package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coursetalk/coursetalk-backend/internal/config"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// AliasQueue hands alias rows to the ingest worker.
type AliasQueue interface {
	Push(ctx context.Context, aliases []model.CourseCodeAlias) error
}

type redisAliasQueue struct {
	rdb *redis.Client
}

// NewRedisAliasQueue pushes JSON-encoded aliases onto alias_ingest_queue.
func NewRedisAliasQueue(rdb *redis.Client) AliasQueue {
	return &redisAliasQueue{rdb: rdb}
}

func (q *redisAliasQueue) Push(ctx context.Context, aliases []model.CourseCodeAlias) error {
	if len(aliases) == 0 {
		return nil
	}

	pipe := q.rdb.Pipeline()
	for _, a := range aliases {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode alias %q: %w", a.SourceCode, err)
		}
		pipe.RPush(ctx, config.WorkerKey.AliasIngestQueue, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}
