package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
)

// attemptBackend is the durable store behind the cache.
type attemptBackend interface {
	Open(ctx context.Context, a *model.ExamAttempt) error
	CloseActive(ctx context.Context, studentID int, at time.Time) (*model.ExamAttempt, error)
	ActiveFor(ctx context.Context, studentID int) (*model.ExamAttempt, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error)
}

// CachedExamAttemptRepository keeps each student's active attempt in Redis in
// front of the durable store. Writes always go to the backend first; Redis
// failures are logged and never fail the call.
type CachedExamAttemptRepository struct {
	backend attemptBackend
	rdb     *redis.Client
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCachedExamAttemptRepository wraps backend with a Redis cache-aside layer.
func NewCachedExamAttemptRepository(backend attemptBackend, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedExamAttemptRepository {
	return &CachedExamAttemptRepository{
		backend: backend,
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With().Str("component", "attempt_cache").Logger(),
	}
}

// Open delegates to the backend and primes the cache on success.
func (r *CachedExamAttemptRepository) Open(ctx context.Context, a *model.ExamAttempt) error {
	if err := r.backend.Open(ctx, a); err != nil {
		return err
	}
	r.store(ctx, a)
	return nil
}

// CloseActive evicts the cached entry before delegating, and again after, so a
// concurrent reader cannot re-prime a finished attempt.
func (r *CachedExamAttemptRepository) CloseActive(ctx context.Context, studentID int, at time.Time) (*model.ExamAttempt, error) {
	r.evict(ctx, studentID)
	a, err := r.backend.CloseActive(ctx, studentID, at)
	r.evict(ctx, studentID)
	return a, err
}

// ActiveFor serves from Redis when possible, otherwise loads from the backend
// and self-heals the cache.
func (r *CachedExamAttemptRepository) ActiveFor(ctx context.Context, studentID int) (*model.ExamAttempt, error) {
	key := config.CacheKey.StudentActiveAttemptKey(studentID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var a model.ExamAttempt
		if jsonErr := json.Unmarshal(raw, &a); jsonErr == nil {
			return &a, nil
		}
		r.log.Warn().Int("student_id", studentID).Msg("Discarding malformed cached attempt")
	case !errors.Is(err, redis.Nil):
		r.log.Warn().Err(err).Int("student_id", studentID).Msg("Redis error reading active attempt")
	}

	a, err := r.backend.ActiveFor(ctx, studentID)
	if err != nil || a == nil {
		return a, err
	}
	r.store(ctx, a)
	return a, nil
}

// ListBySession is not cached.
func (r *CachedExamAttemptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error) {
	return r.backend.ListBySession(ctx, sessionID)
}

func (r *CachedExamAttemptRepository) store(ctx context.Context, a *model.ExamAttempt) {
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, config.CacheKey.StudentActiveAttemptKey(a.StudentID), raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Int("student_id", a.StudentID).Msg("Failed to cache active attempt")
	}
}

func (r *CachedExamAttemptRepository) evict(ctx context.Context, studentID int) {
	if err := r.rdb.Del(ctx, config.CacheKey.StudentActiveAttemptKey(studentID)).Err(); err != nil {
		r.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to evict cached attempt")
	}
}
