package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exammode/internal/model"
)

// CourseRepository reads course instances and their modules.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetCourse retrieves a course instance by ID.
func (r *CourseRepository) GetCourse(ctx context.Context, id int) (*model.CourseInstance, error) {
	c := &model.CourseInstance{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, visible_to_students, enrollment_audience
		 FROM course_instances WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.VisibleToStudents, &c.EnrollmentAudience)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetModule retrieves a course module by ID.
func (r *CourseRepository) GetModule(ctx context.Context, id int) (*model.CourseModule, error) {
	m := &model.CourseModule{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_instance_id, name, opening_time, closing_time
		 FROM course_modules WHERE id = $1`, id,
	).Scan(&m.ID, &m.CourseInstanceID, &m.Name, &m.Window.Opening, &m.Window.Closing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	return m, nil
}
