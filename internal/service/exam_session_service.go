package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exammode/internal/model"
)

// ErrModuleNotInCourse is returned when staff attach a session to a module of
// another course.
var ErrModuleNotInCourse = errors.New("exam module does not belong to this course")

// ExamSessionService handles staff scheduling of exam sessions.
type ExamSessionService struct {
	sessions SessionStore
	courses  CourseLookup
	attempts AttemptStore
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(sessions SessionStore, courses CourseLookup, attempts AttemptStore) *ExamSessionService {
	return &ExamSessionService{sessions: sessions, courses: courses, attempts: attempts}
}

// Create schedules a session on one of the course's modules. The session
// inherits the module's window.
func (s *ExamSessionService) Create(ctx context.Context, courseInstanceID int, req model.CreateExamSessionRequest) (*model.ExamSession, error) {
	if _, err := s.courses.GetCourse(ctx, courseInstanceID); err != nil {
		return nil, err
	}

	module, err := s.courses.GetModule(ctx, req.ExamModuleID)
	if err != nil {
		return nil, err
	}
	if module.CourseInstanceID != courseInstanceID {
		return nil, ErrModuleNotInCourse
	}

	session := &model.ExamSession{
		Name:             strings.TrimSpace(req.Name),
		CourseInstanceID: courseInstanceID,
		ExamModuleID:     module.ID,
		Window:           module.Window,
	}
	if req.Room != nil {
		if room := strings.TrimSpace(*req.Room); room != "" {
			session.Room = &room
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns one session.
func (s *ExamSessionService) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// ListByCourse returns all sessions of a course regardless of their window.
func (s *ExamSessionService) ListByCourse(ctx context.Context, courseInstanceID int) ([]model.ExamSession, error) {
	if _, err := s.courses.GetCourse(ctx, courseInstanceID); err != nil {
		return nil, err
	}
	return s.sessions.ListByCourse(ctx, courseInstanceID)
}

// ListAttempts returns the audit list of a session's attempts.
func (s *ExamSessionService) ListAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAttempt, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
