package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
)

// RedisEventPublisher broadcasts admission events on the session's monitor
// channel and enqueues them for the audit worker.
type RedisEventPublisher struct {
	rdb *redis.Client
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb}
}

// Publish sends the event to both destinations in one round trip.
func (p *RedisEventPublisher) Publish(ctx context.Context, e model.AdmissionEvent) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.Publish(ctx, config.CacheKey.ExamSessionMonitorChannel(e.SessionID), raw)
	pipe.RPush(ctx, config.WorkerKey.AdmissionAuditQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
