package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamAttempt is one student's pass through an exam session.
type ExamAttempt struct {
	ID               uuid.UUID  `json:"id"`
	SessionID        uuid.UUID  `json:"session_id"`
	StudentID        int        `json:"student_id"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	SystemIdentifier string     `json:"system_identifier,omitempty"`
	ExamVersion      string     `json:"exam_version,omitempty"`
}

// Active reports whether the attempt has not been finished yet.
func (a *ExamAttempt) Active() bool {
	return a.FinishedAt == nil
}

// AttemptMeta carries the opaque values collected when an attempt opens.
type AttemptMeta struct {
	SystemIdentifier string `json:"system_identifier" binding:"omitempty,max=255"`
	ExamVersion      string `json:"exam_version" binding:"omitempty,max=255"`
}
