package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentRepository records course membership.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// IsEnrolled reports whether the user is a student of the course instance.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, courseInstanceID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM enrollments WHERE course_instance_id = $1 AND user_profile_id = $2
		 )`, courseInstanceID, userID,
	).Scan(&exists)
	return exists, err
}

// Enroll adds the user to the course instance. Enrolling twice is a no-op.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, courseInstanceID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (course_instance_id, user_profile_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, courseInstanceID, userID)
	return err
}
