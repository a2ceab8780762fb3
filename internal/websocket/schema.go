package websocket

import (
	"encoding/json"

	"github.com/stemsi/exammode/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSnapshot  Event = "snapshot"
	EventAdmission Event = "admission"
	EventPong      Event = "pong"
)

// SnapshotResponse is the first message a monitor receives.
type SnapshotResponse struct {
	Event       Event                    `json:"event"`
	Session     model.ExamSessionSummary `json:"session"`
	Attempts    []model.ExamAttempt      `json:"attempts"`
	ActiveCount int                      `json:"active_count"`
}

// AdmissionResponse forwards one admission event as published.
type AdmissionResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
