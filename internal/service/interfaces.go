package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exammode/internal/model"
)

// EnrollmentService records course membership. Enroll must be idempotent.
type EnrollmentService interface {
	IsEnrolled(ctx context.Context, userID, courseInstanceID int) (bool, error)
	Enroll(ctx context.Context, userID, courseInstanceID int) error
}

// ContentLookup resolves exam modules to their entry learning object.
// FirstLearningObject returns nil when the module has no content.
type ContentLookup interface {
	FirstLearningObject(ctx context.Context, moduleID int) (*model.ContentRef, error)
	URLFor(ref model.ContentRef) string
}

// CourseLookup reads course structure.
type CourseLookup interface {
	GetCourse(ctx context.Context, id int) (*model.CourseInstance, error)
	GetModule(ctx context.Context, id int) (*model.CourseModule, error)
}

// SessionSource reads exam sessions.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	ListByCourse(ctx context.Context, courseInstanceID int) ([]model.ExamSession, error)
}

// SessionStore is a SessionSource that staff can also write to.
type SessionStore interface {
	SessionSource
	Create(ctx context.Context, s *model.ExamSession) error
}

// AttemptStore owns exam attempts and the one-active-attempt-per-student
// relation. Open returns repository.ErrActiveAttemptExists and CloseActive
// returns repository.ErrNoActiveAttempt for the respective conflicts.
type AttemptStore interface {
	Open(ctx context.Context, a *model.ExamAttempt) error
	CloseActive(ctx context.Context, studentID int, at time.Time) (*model.ExamAttempt, error)
	ActiveFor(ctx context.Context, studentID int) (*model.ExamAttempt, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error)
}

// EventPublisher fans admission events out to monitors and the audit log.
type EventPublisher interface {
	Publish(ctx context.Context, e model.AdmissionEvent) error
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
