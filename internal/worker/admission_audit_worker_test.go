package worker

import (
	"context"
	"encoding/json"
	"errors"
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

type memLog struct {
	mu       sync.Mutex
	events   []model.AdmissionEvent
	failures int
}

func (m *memLog) InsertBatch(_ context.Context, events []model.AdmissionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("database unavailable")
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *memLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func newTestWorker(t *testing.T, store *memLog) (*AdmissionAuditWorker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewAdmissionAuditWorker(store, rdb, zerolog.Nop())
	w.pollWait = 50 * time.Millisecond
	w.retryDelay = 10 * time.Millisecond
	return w, mr
}

func pushEvents(t *testing.T, mr *miniredis.Miniredis, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		raw, err := json.Marshal(model.AdmissionEvent{
			Type:       model.EventAttemptOpened,
			SessionID:  uuid.New(),
			StudentID:  i + 1,
			OccurredAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		_, err = mr.RPush(config.WorkerKey.AdmissionAuditQueue, string(raw))
		require.NoError(t, err)
	}
}

func runWorker(w *AdmissionAuditWorker) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	return cancel, done
}

func TestAuditWorkerPersistsQueuedEvents(t *testing.T) {
	store := &memLog{}
	w, mr := newTestWorker(t, store)
	pushEvents(t, mr, 3)

	cancel, done := runWorker(w)
	require.Eventually(t, func() bool { return store.count() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, store.events[0].StudentID)
	assert.Equal(t, 3, store.events[2].StudentID)
	assert.False(t, mr.Exists(config.WorkerKey.AdmissionAuditQueue))
}

func TestAuditWorkerRetriesFailedBatch(t *testing.T) {
	store := &memLog{failures: 2}
	w, mr := newTestWorker(t, store)
	pushEvents(t, mr, 2)

	cancel, done := runWorker(w)
	require.Eventually(t, func() bool { return store.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, store.events[0].StudentID)
	assert.Equal(t, 2, store.events[1].StudentID)
}

func TestAuditWorkerDrainsOnShutdown(t *testing.T) {
	store := &memLog{}
	w, mr := newTestWorker(t, store)
	pushEvents(t, mr, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 5, store.count())
}

func TestAuditWorkerSkipsMalformedPayload(t *testing.T) {
	store := &memLog{}
	w, mr := newTestWorker(t, store)
	_, err := mr.RPush(config.WorkerKey.AdmissionAuditQueue, "{broken")
	require.NoError(t, err)
	pushEvents(t, mr, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 1, store.count())
}
