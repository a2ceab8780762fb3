package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/model"
)

const auditBatchSize = 100

// AdmissionLogWriter persists admission events.
type AdmissionLogWriter interface {
	InsertBatch(ctx context.Context, events []model.AdmissionEvent) error
}

// AdmissionAuditWorker consumes admission_audit_queue and writes the events
// to exam_admission_log.
type AdmissionAuditWorker struct {
	store      AdmissionLogWriter
	rdb        *redis.Client
	log        zerolog.Logger
	queue      string
	pollWait   time.Duration
	retryDelay time.Duration
}

// NewAdmissionAuditWorker creates a new AdmissionAuditWorker.
func NewAdmissionAuditWorker(store AdmissionLogWriter, rdb *redis.Client, log zerolog.Logger) *AdmissionAuditWorker {
	return &AdmissionAuditWorker{
		store:      store,
		rdb:        rdb,
		log:        log.With().Str("component", "admission_audit_worker").Logger(),
		queue:      config.WorkerKey.AdmissionAuditQueue,
		pollWait:   time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Start runs the worker loop until ctx is done, then drains the queue.
// Call in a goroutine.
func (w *AdmissionAuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AdmissionAuditWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or pollWait elapses.
	result, err := w.rdb.BLPop(ctx, w.pollWait, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			sleep(ctx, w.pollWait)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	raw := []string{result[1]}
	// Take whatever else is already queued in the same batch.
	more, err := w.rdb.LPopCount(ctx, w.queue, auditBatchSize-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.log.Warn().Err(err).Msg("LPopCount error")
	}
	raw = append(raw, more...)

	if err := w.persist(ctx, raw); err != nil {
		w.log.Error().Err(err).Int("count", len(raw)).Msg("Persist error, retrying")
		w.requeue(context.Background(), raw)
		sleep(ctx, w.retryDelay)
	}
}

func (w *AdmissionAuditWorker) persist(ctx context.Context, raw []string) error {
	events := make([]model.AdmissionEvent, 0, len(raw))
	for _, r := range raw {
		var e model.AdmissionEvent
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			w.log.Error().Err(err).Str("payload", r).Msg("Dropping malformed event")
			continue
		}
		events = append(events, e)
	}
	return w.store.InsertBatch(ctx, events)
}

func (w *AdmissionAuditWorker) requeue(ctx context.Context, raw []string) {
	// LPUSH prepends one by one, so push in reverse to keep the original order.
	values := make([]interface{}, len(raw))
	for i, r := range raw {
		values[len(raw)-1-i] = r
	}
	if err := w.rdb.LPush(ctx, w.queue, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(raw)).Msg("Requeue failed, events lost")
	}
}

// drain persists everything still queued before shutdown.
func (w *AdmissionAuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPopCount(ctx, w.queue, auditBatchSize).Result()
		if err != nil || len(raw) == 0 {
			break
		}
		if err := w.persist(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.requeue(ctx, raw)
			break
		}
		drained += len(raw)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
