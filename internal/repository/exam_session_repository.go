package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

const sessionSelect = `SELECT s.id, s.name, s.room, s.course_instance_id, s.exam_module_id, m.opening_time, m.closing_time
	FROM exam_sessions s
	JOIN course_modules m ON m.id = s.exam_module_id`

// ExamSessionRepository handles exam session data access. The time window is
// read from the session's exam module.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// GetByID retrieves a session with its window.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := scanSession(r.pool.QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, id), s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get exam session: %w", err)
	}
	return s, nil
}

// ListByCourse retrieves every session of a course instance.
func (r *ExamSessionRepository) ListByCourse(ctx context.Context, courseInstanceID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		sessionSelect+` WHERE s.course_instance_id = $1 ORDER BY m.opening_time, s.name`, courseInstanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create inserts a new session. The caller supplies the module window, which
// is not stored on the session row.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (name, room, course_instance_id, exam_module_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.Name, s.Room, s.CourseInstanceID, s.ExamModuleID,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

func scanSession(row pgx.Row, s *model.ExamSession) error {
	return row.Scan(&s.ID, &s.Name, &s.Room, &s.CourseInstanceID, &s.ExamModuleID, &s.Window.Opening, &s.Window.Closing)
}
