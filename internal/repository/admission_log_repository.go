package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

// AdmissionLogRepository persists the admission audit trail.
type AdmissionLogRepository struct {
	pool *pgxpool.Pool
}

// NewAdmissionLogRepository creates a new AdmissionLogRepository.
func NewAdmissionLogRepository(pool *pgxpool.Pool) *AdmissionLogRepository {
	return &AdmissionLogRepository{pool: pool}
}

// InsertBatch bulk-copies events into exam_admission_log.
func (r *AdmissionLogRepository) InsertBatch(ctx context.Context, events []model.AdmissionEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_admission_log"},
		[]string{"event_type", "session_id", "student_id", "attempt_id", "occurred_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{string(e.Type), e.SessionID, e.StudentID, e.AttemptID, e.OccurredAt}, nil
		}),
	)
	return err
}
