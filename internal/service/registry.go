package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exammode/internal/model"
)

// ExamSessionRegistry finds open sessions and their entry content.
type ExamSessionRegistry struct {
	sessions SessionSource
	content  ContentLookup
}

// NewExamSessionRegistry creates a new ExamSessionRegistry.
func NewExamSessionRegistry(sessions SessionSource, content ContentLookup) *ExamSessionRegistry {
	return &ExamSessionRegistry{sessions: sessions, content: content}
}

// ActiveSessionsFor returns every session of the course whose window contains
// now. More than one may be open at a time; callers choose between them.
func (r *ExamSessionRegistry) ActiveSessionsFor(ctx context.Context, courseInstanceID int, now time.Time) ([]model.ExamSession, error) {
	all, err := r.sessions.ListByCourse(ctx, courseInstanceID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	active := make([]model.ExamSession, 0, len(all))
	for _, s := range all {
		if s.Window.Contains(now) {
			active = append(active, s)
		}
	}
	return active, nil
}

// EntryContentFor returns the first learning object of the session's exam
// module, or nil when none is configured.
func (r *ExamSessionRegistry) EntryContentFor(ctx context.Context, session *model.ExamSession) (*model.ContentRef, error) {
	ref, err := r.content.FirstLearningObject(ctx, session.ExamModuleID)
	if err != nil {
		return nil, fmt.Errorf("lookup entry content: %w", err)
	}
	return ref, nil
}

// EntryURLFor is EntryContentFor resolved to a URL; empty when no content.
func (r *ExamSessionRegistry) EntryURLFor(ctx context.Context, session *model.ExamSession) (string, error) {
	ref, err := r.EntryContentFor(ctx, session)
	if err != nil || ref == nil {
		return "", err
	}
	return r.content.URLFor(*ref), nil
}

// Get resolves a session by id. Missing sessions yield repository.ErrSessionNotFound.
func (r *ExamSessionRegistry) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return r.sessions.GetByID(ctx, id)
}
