package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/stemsi/exammode/internal/service"

// OutcomeKind tags the result of an admission transition.
type OutcomeKind string

const (
	OutcomeAdmitted             OutcomeKind = "admitted"
	OutcomeRejected             OutcomeKind = "rejected"
	OutcomeContentNotConfigured OutcomeKind = "content_not_configured"
	OutcomeAttemptInProgress    OutcomeKind = "attempt_in_progress"
	OutcomeCompleted            OutcomeKind = "completed"
	OutcomeNothingToClose       OutcomeKind = "nothing_to_close"
)

// Outcome is what Enter and Leave return. ContentURL is set for Admitted and,
// when resolvable, for AttemptInProgress. Attempt is set for Admitted,
// AttemptInProgress and Completed.
type Outcome struct {
	Kind       OutcomeKind
	ContentURL string
	Attempt    *model.ExamAttempt
}

// ActiveExam is a student's running attempt and where to resume it.
type ActiveExam struct {
	Attempt    model.ExamAttempt `json:"attempt"`
	ContentURL string            `json:"content_url,omitempty"`
}

// AdmissionController drives the attempt lifecycle:
// no attempt -> active attempt -> closed attempt.
type AdmissionController struct {
	registry   *ExamSessionRegistry
	policy     *EligibilityPolicy
	enrollment EnrollmentService
	attempts   AttemptStore
	events     EventPublisher
	clock      Clock
	log        zerolog.Logger

	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// NewAdmissionController creates a new AdmissionController. Tracing and
// metrics go through the global otel providers.
func NewAdmissionController(
	registry *ExamSessionRegistry,
	policy *EligibilityPolicy,
	enrollment EnrollmentService,
	attempts AttemptStore,
	events EventPublisher,
	clock Clock,
	log zerolog.Logger,
) *AdmissionController {
	c := &AdmissionController{
		registry:   registry,
		policy:     policy,
		enrollment: enrollment,
		attempts:   attempts,
		events:     events,
		clock:      clock,
		log:        log.With().Str("component", "admission").Logger(),
		tracer:     otel.Tracer(instrumentationName),
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"exam_admission.outcomes",
		metric.WithDescription("Admission transitions by operation and outcome"),
	)
	if err != nil {
		c.log.Warn().Err(err).Msg("Outcome counter unavailable")
		counter = noop.Int64Counter{}
	}
	c.outcomes = counter
	return c
}

// ActiveSessions lists the summaries of the course's currently open sessions.
func (c *AdmissionController) ActiveSessions(ctx context.Context, courseInstanceID int) ([]model.ExamSessionSummary, error) {
	sessions, err := c.registry.ActiveSessionsFor(ctx, courseInstanceID, c.clock.Now())
	if err != nil {
		return nil, err
	}
	out := make([]model.ExamSessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

// Enter admits the identity into session, enrolling it into the course first
// when it is eligible but not yet a member. The session is assumed to be open.
func (c *AdmissionController) Enter(ctx context.Context, id model.Identity, session *model.ExamSession, meta model.AttemptMeta) (Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "admission.Enter", trace.WithAttributes(
		attribute.String("exam_session.id", session.ID.String()),
		attribute.Int("student.id", id.UserID),
	))
	defer span.End()

	out, err := c.enter(ctx, id, session, meta)
	c.record(ctx, span, "enter", out, err)
	return out, err
}

// EnterByID resolves the session and enters it if its window contains now.
// Unknown sessions return repository.ErrSessionNotFound.
func (c *AdmissionController) EnterByID(ctx context.Context, id model.Identity, sessionID uuid.UUID, meta model.AttemptMeta) (Outcome, error) {
	if !id.Authenticated {
		return Outcome{Kind: OutcomeRejected}, nil
	}

	session, err := c.registry.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if !session.Window.Contains(c.clock.Now()) {
		return Outcome{Kind: OutcomeRejected}, nil
	}
	return c.Enter(ctx, id, session, meta)
}

func (c *AdmissionController) enter(ctx context.Context, id model.Identity, session *model.ExamSession, meta model.AttemptMeta) (Outcome, error) {
	content, err := c.registry.EntryContentFor(ctx, session)
	if err != nil {
		return Outcome{}, err
	}
	if content == nil {
		return Outcome{Kind: OutcomeContentNotConfigured}, nil
	}

	member, err := c.policy.IsAlreadyMember(ctx, id, session)
	if err != nil {
		return Outcome{}, err
	}
	if !member {
		eligible, err := c.policy.CanEnroll(ctx, id, session)
		if err != nil {
			return Outcome{}, err
		}
		if !eligible {
			c.publish(ctx, model.AdmissionEvent{
				Type:      model.EventAdmissionRejected,
				SessionID: session.ID,
				StudentID: id.UserID,
			})
			return Outcome{Kind: OutcomeRejected}, nil
		}
		if err := c.enrollment.Enroll(ctx, id.UserID, session.CourseInstanceID); err != nil {
			return Outcome{}, fmt.Errorf("enroll: %w", err)
		}
		c.log.Info().
			Int("student_id", id.UserID).
			Int("course_instance_id", session.CourseInstanceID).
			Msg("Enrolled student on exam entry")
	}

	attempt := &model.ExamAttempt{
		SessionID:        session.ID,
		StudentID:        id.UserID,
		StartedAt:        c.clock.Now(),
		SystemIdentifier: meta.SystemIdentifier,
		ExamVersion:      meta.ExamVersion,
	}
	if err := c.attempts.Open(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			return c.inProgress(ctx, id.UserID)
		}
		return Outcome{}, fmt.Errorf("open attempt: %w", err)
	}

	c.publish(ctx, model.AdmissionEvent{
		Type:      model.EventAttemptOpened,
		SessionID: session.ID,
		StudentID: id.UserID,
		AttemptID: &attempt.ID,
	})
	return Outcome{Kind: OutcomeAdmitted, ContentURL: c.registry.content.URLFor(*content), Attempt: attempt}, nil
}

// inProgress describes the attempt that blocked a new one.
func (c *AdmissionController) inProgress(ctx context.Context, studentID int) (Outcome, error) {
	active, err := c.current(ctx, studentID)
	if err != nil {
		return Outcome{}, err
	}
	if active == nil {
		// Closed between our Open and this lookup.
		return Outcome{Kind: OutcomeAttemptInProgress}, nil
	}
	return Outcome{Kind: OutcomeAttemptInProgress, ContentURL: active.ContentURL, Attempt: &active.Attempt}, nil
}

// Leave closes the identity's active attempt. Having none is not an error.
func (c *AdmissionController) Leave(ctx context.Context, id model.Identity) (Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "admission.Leave", trace.WithAttributes(
		attribute.Int("student.id", id.UserID),
	))
	defer span.End()

	out, err := c.leave(ctx, id)
	c.record(ctx, span, "leave", out, err)
	return out, err
}

func (c *AdmissionController) leave(ctx context.Context, id model.Identity) (Outcome, error) {
	if !id.Authenticated {
		return Outcome{Kind: OutcomeNothingToClose}, nil
	}

	closed, err := c.attempts.CloseActive(ctx, id.UserID, c.clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveAttempt) {
			return Outcome{Kind: OutcomeNothingToClose}, nil
		}
		return Outcome{}, fmt.Errorf("close attempt: %w", err)
	}

	c.publish(ctx, model.AdmissionEvent{
		Type:      model.EventAttemptClosed,
		SessionID: closed.SessionID,
		StudentID: id.UserID,
		AttemptID: &closed.ID,
	})
	return Outcome{Kind: OutcomeCompleted, Attempt: closed}, nil
}

// Current returns the identity's running attempt with its resume URL, or nil.
func (c *AdmissionController) Current(ctx context.Context, id model.Identity) (*ActiveExam, error) {
	if !id.Authenticated {
		return nil, nil
	}
	return c.current(ctx, id.UserID)
}

func (c *AdmissionController) current(ctx context.Context, studentID int) (*ActiveExam, error) {
	attempt, err := c.attempts.ActiveFor(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get active attempt: %w", err)
	}
	if attempt == nil {
		return nil, nil
	}

	session, err := c.registry.Get(ctx, attempt.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get attempt session: %w", err)
	}
	url, err := c.registry.EntryURLFor(ctx, session)
	if err != nil {
		return nil, err
	}
	return &ActiveExam{Attempt: *attempt, ContentURL: url}, nil
}

// publish is best effort; a lost event never fails an admission.
func (c *AdmissionController) publish(ctx context.Context, e model.AdmissionEvent) {
	e.OccurredAt = c.clock.Now()
	if err := c.events.Publish(ctx, e); err != nil {
		c.log.Warn().Err(err).
			Str("event", string(e.Type)).
			Int("student_id", e.StudentID).
			Msg("Failed to publish admission event")
	}
}

func (c *AdmissionController) record(ctx context.Context, span trace.Span, op string, out Outcome, err error) {
	kind := string(out.Kind)
	if err != nil {
		kind = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("admission.outcome", kind))
	c.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", kind),
	))
}
