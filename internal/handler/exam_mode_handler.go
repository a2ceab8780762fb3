package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/middleware"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
	"github.com/stemsi/exammode/internal/response"
	"github.com/stemsi/exammode/internal/service"
	"github.com/stemsi/exammode/internal/validator"
)

// ExamModeHandler exposes exam entry and exit to students.
type ExamModeHandler struct {
	admission *service.AdmissionController
	log       zerolog.Logger
}

// NewExamModeHandler creates a new ExamModeHandler.
func NewExamModeHandler(admission *service.AdmissionController, log zerolog.Logger) *ExamModeHandler {
	return &ExamModeHandler{
		admission: admission,
		log:       log.With().Str("component", "exam_mode_handler").Logger(),
	}
}

// ActiveSessions godoc
// GET /api/v1/courses/:course_id/exam-sessions/active
// Lists the course's exam sessions whose window is open right now.
func (h *ExamModeHandler) ActiveSessions(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || courseID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.admission.ActiveSessions(c.Request.Context(), courseID)
	if err != nil {
		h.log.Error().Err(err).Int("course_id", courseID).Msg("List active sessions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// Enter godoc
// POST /api/v1/exam-sessions/:session_id/enter
// Body (optional): {"system_identifier": "...", "exam_version": "..."}
func (h *ExamModeHandler) Enter(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var meta model.AttemptMeta
	if fields := validator.BindOptional(c, &meta); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.admission.EnterByID(c.Request.Context(), claims.Identity(), sessionID, meta)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamSessionNotFound)
			return
		}
		h.log.Error().Err(err).
			Int("student_id", claims.UserID).
			Str("session_id", sessionID.String()).
			Msg("Exam entry failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	writeOutcome(c, out)
}

// Leave godoc
// POST /api/v1/exam/leave
// Finishes the caller's active attempt. Calling it with none is a no-op.
func (h *ExamModeHandler) Leave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	out, err := h.admission.Leave(c.Request.Context(), claims.Identity())
	if err != nil {
		h.log.Error().Err(err).Int("student_id", claims.UserID).Msg("Exam leave failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	writeOutcome(c, out)
}

// Current godoc
// GET /api/v1/exam/current
// Returns the caller's running attempt and its resume URL, or null.
func (h *ExamModeHandler) Current(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	cur, err := h.admission.Current(c.Request.Context(), claims.Identity())
	if err != nil {
		h.log.Error().Err(err).Int("student_id", claims.UserID).Msg("Current attempt lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"active_exam": cur})
}

// writeOutcome maps an admission outcome onto the HTTP response.
func writeOutcome(c *gin.Context, out service.Outcome) {
	switch out.Kind {
	case service.OutcomeAdmitted:
		response.Success(c, http.StatusOK, gin.H{
			"status":      out.Kind,
			"content_url": out.ContentURL,
			"attempt":     out.Attempt,
		})
	case service.OutcomeCompleted:
		response.Success(c, http.StatusOK, gin.H{"status": out.Kind, "attempt": out.Attempt})
	case service.OutcomeNothingToClose:
		response.Success(c, http.StatusOK, gin.H{"status": out.Kind})
	case service.OutcomeRejected:
		response.Fail(c, http.StatusForbidden, response.ErrExamEntryRejected)
	case service.OutcomeContentNotConfigured:
		response.Fail(c, http.StatusConflict, response.ErrExamContentNotConfigured)
	case service.OutcomeAttemptInProgress:
		response.FailWithDetails(c, http.StatusConflict, response.ErrExamAttemptInProgress, gin.H{
			"content_url": out.ContentURL,
			"attempt":     out.Attempt,
		})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
