package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is a minimal attemptBackend that counts ActiveFor loads.
type memBackend struct {
	mu     sync.Mutex
	active map[int]model.ExamAttempt
	loads  int
}

func (b *memBackend) Open(_ context.Context, a *model.ExamAttempt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.active[a.StudentID]; ok {
		return ErrActiveAttemptExists
	}
	a.ID = uuid.New()
	b.active[a.StudentID] = *a
	return nil
}

func (b *memBackend) CloseActive(_ context.Context, studentID int, at time.Time) (*model.ExamAttempt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.active[studentID]
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	delete(b.active, studentID)
	a.FinishedAt = &at
	return &a, nil
}

func (b *memBackend) ActiveFor(_ context.Context, studentID int) (*model.ExamAttempt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	a, ok := b.active[studentID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (b *memBackend) ListBySession(context.Context, uuid.UUID) ([]model.ExamAttempt, error) {
	return nil, nil
}

func newCachedRepo(t *testing.T) (*CachedExamAttemptRepository, *memBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backend := &memBackend{active: map[int]model.ExamAttempt{}}
	return NewCachedExamAttemptRepository(backend, rdb, time.Minute, zerolog.Nop()), backend, mr
}

func TestCachedAttemptOpenPrimesCache(t *testing.T) {
	repo, backend, mr := newCachedRepo(t)
	ctx := context.Background()

	a := &model.ExamAttempt{SessionID: uuid.New(), StudentID: 7, StartedAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Open(ctx, a))

	key := config.CacheKey.StudentActiveAttemptKey(7)
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	got, err := repo.ActiveFor(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Zero(t, backend.loads)
}

func TestCachedAttemptCloseEvicts(t *testing.T) {
	repo, _, mr := newCachedRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Open(ctx, &model.ExamAttempt{SessionID: uuid.New(), StudentID: 7}))
	closed, err := repo.CloseActive(ctx, 7, time.Now())
	require.NoError(t, err)
	require.NotNil(t, closed.FinishedAt)
	assert.False(t, mr.Exists(config.CacheKey.StudentActiveAttemptKey(7)))

	got, err := repo.ActiveFor(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.CloseActive(ctx, 7, time.Now())
	assert.ErrorIs(t, err, ErrNoActiveAttempt)
}

func TestCachedAttemptMissSelfHeals(t *testing.T) {
	repo, backend, mr := newCachedRepo(t)
	ctx := context.Background()

	backend.active[9] = model.ExamAttempt{ID: uuid.New(), StudentID: 9}

	got, err := repo.ActiveFor(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, backend.loads)

	raw, err := mr.Get(config.CacheKey.StudentActiveAttemptKey(9))
	require.NoError(t, err)
	var cached model.ExamAttempt
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, got.ID, cached.ID)

	_, err = repo.ActiveFor(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.loads)
}

func TestCachedAttemptMalformedEntry(t *testing.T) {
	repo, backend, mr := newCachedRepo(t)
	require.NoError(t, mr.Set(config.CacheKey.StudentActiveAttemptKey(3), "{not json"))

	got, err := repo.ActiveFor(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, backend.loads)
}

func TestCachedAttemptSurvivesRedisOutage(t *testing.T) {
	repo, backend, mr := newCachedRepo(t)
	ctx := context.Background()
	mr.Close()

	a := &model.ExamAttempt{SessionID: uuid.New(), StudentID: 5}
	require.NoError(t, repo.Open(ctx, a))

	got, err := repo.ActiveFor(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, 1, backend.loads)

	_, err = repo.CloseActive(ctx, 5, time.Now())
	require.NoError(t, err)
}
