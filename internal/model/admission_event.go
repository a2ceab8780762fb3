package model

import (
	"time"

	"github.com/google/uuid"
)

// AdmissionEventType enumerates the attempt lifecycle events that are audited.
type AdmissionEventType string

const (
	EventAttemptOpened     AdmissionEventType = "attempt.opened"
	EventAttemptClosed     AdmissionEventType = "attempt.closed"
	EventAdmissionRejected AdmissionEventType = "admission.rejected"
)

// AdmissionEvent is published on every admission transition.
type AdmissionEvent struct {
	Type       AdmissionEventType `json:"type"`
	SessionID  uuid.UUID          `json:"session_id"`
	StudentID  int                `json:"student_id"`
	AttemptID  *uuid.UUID         `json:"attempt_id,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
