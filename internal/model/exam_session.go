package model

import (
	"strings"

	"github.com/google/uuid"
)

// ExamSession is a named, time-windowed offering of an exam. The window
// belongs to the referenced exam module; sessions are read-only to admission.
type ExamSession struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Room             *string    `json:"room,omitempty"`
	CourseInstanceID int        `json:"course_instance_id"`
	ExamModuleID     int        `json:"exam_module_id"`
	Window           TimeWindow `json:"window"`
}

// Label renders "<name> <room>" for staff-facing lists.
func (s ExamSession) Label() string {
	if s.Room == nil || *s.Room == "" {
		return s.Name
	}
	return strings.Join([]string{s.Name, *s.Room}, " ")
}

// ExamSessionSummary is the outward view of an open session.
type ExamSessionSummary struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Room   *string    `json:"room,omitempty"`
	Window TimeWindow `json:"window"`
}

// Summary projects the session onto its outward view.
func (s ExamSession) Summary() ExamSessionSummary {
	return ExamSessionSummary{ID: s.ID, Name: s.Name, Room: s.Room, Window: s.Window}
}

// CreateExamSessionRequest is the payload staff use to schedule a session.
type CreateExamSessionRequest struct {
	Name         string  `json:"name" binding:"required,notblank,max=255"`
	Room         *string `json:"room" binding:"omitempty,max=255"`
	ExamModuleID int     `json:"exam_module_id" binding:"required,min=1"`
}
