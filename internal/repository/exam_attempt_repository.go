package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

const attemptColumns = `a.id, a.session_id, a.student_id, a.started_at, a.finished_at, a.system_identifier, a.exam_version`

// ExamAttemptRepository stores exam attempts and owns the per-student active
// attempt relation.
type ExamAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewExamAttemptRepository creates a new ExamAttemptRepository.
func NewExamAttemptRepository(pool *pgxpool.Pool) *ExamAttemptRepository {
	return &ExamAttemptRepository{pool: pool}
}

// Open inserts the attempt and marks it as the student's active attempt in one
// transaction. If the student already holds an active attempt nothing is
// written and ErrActiveAttemptExists is returned.
func (r *ExamAttemptRepository) Open(ctx context.Context, a *model.ExamAttempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin open attempt: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO exam_attempts (session_id, student_id, started_at, system_identifier, exam_version)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.SessionID, a.StudentID, a.StartedAt, a.SystemIdentifier, a.ExamVersion,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	// The primary key on student_id makes a concurrent Open for the same
	// student wait here until the other transaction settles.
	tag, err := tx.Exec(ctx,
		`INSERT INTO active_exam_attempts (student_id, attempt_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id) DO NOTHING`,
		a.StudentID, id,
	)
	if err != nil {
		return fmt.Errorf("mark active attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActiveAttemptExists
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit open attempt: %w", err)
	}
	a.ID = id
	a.FinishedAt = nil
	return nil
}

// CloseActive finishes the student's active attempt at the given instant and
// clears the active relation. Returns ErrNoActiveAttempt when there is none.
func (r *ExamAttemptRepository) CloseActive(ctx context.Context, studentID int, at time.Time) (*model.ExamAttempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin close attempt: %w", err)
	}
	defer tx.Rollback(ctx)

	var attemptID uuid.UUID
	err = tx.QueryRow(ctx,
		`DELETE FROM active_exam_attempts WHERE student_id = $1 RETURNING attempt_id`, studentID,
	).Scan(&attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("clear active attempt: %w", err)
	}

	a := &model.ExamAttempt{}
	err = scanAttempt(tx.QueryRow(ctx,
		`UPDATE exam_attempts a SET finished_at = $2
		 WHERE a.id = $1
		 RETURNING `+attemptColumns, attemptID, at,
	), a)
	if err != nil {
		return nil, fmt.Errorf("finish attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit close attempt: %w", err)
	}
	return a, nil
}

// ActiveFor returns the student's active attempt, or nil if there is none.
func (r *ExamAttemptRepository) ActiveFor(ctx context.Context, studentID int) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM active_exam_attempts aa
		 JOIN exam_attempts a ON a.id = aa.attempt_id
		 WHERE aa.student_id = $1`, studentID,
	), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active attempt: %w", err)
	}
	return a, nil
}

// ListBySession returns every attempt of a session, newest first.
func (r *ExamAttemptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts a
		 WHERE a.session_id = $1
		 ORDER BY a.started_at DESC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row, a *model.ExamAttempt) error {
	return row.Scan(&a.ID, &a.SessionID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.SystemIdentifier, &a.ExamVersion)
}
