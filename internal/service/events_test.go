package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisEventPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	event := model.AdmissionEvent{
		Type:       model.EventAttemptOpened,
		SessionID:  uuid.New(),
		StudentID:  studentID,
		OccurredAt: at(11, 0),
	}

	sub := rdb.Subscribe(ctx, config.CacheKey.ExamSessionMonitorChannel(event.SessionID))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, NewRedisEventPublisher(rdb).Publish(ctx, event))

	queued, err := mr.List(config.WorkerKey.AdmissionAuditQueue)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	var got model.AdmissionEvent
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &got))
	assert.Equal(t, event.SessionID, got.SessionID)
	assert.Equal(t, event.Type, got.Type)

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, queued[0], msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message on monitor channel")
	}
}
