package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
	"github.com/stemsi/exammode/internal/response"
	"github.com/stemsi/exammode/internal/service"
	"github.com/stemsi/exammode/internal/validator"
)

// StaffHandler lets course staff schedule sessions and audit attempts.
type StaffHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *StaffHandler {
	return &StaffHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "staff_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/staff/courses/:course_id/exam-sessions
func (h *StaffHandler) CreateSession(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || courseID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CreateExamSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), courseID, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session, "label": session.Label()})
}

// ListSessions godoc
// GET /api/v1/staff/courses/:course_id/exam-sessions
func (h *StaffHandler) ListSessions(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || courseID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.sessionService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ListAttempts godoc
// GET /api/v1/staff/exam-sessions/:session_id/attempts
func (h *StaffHandler) ListAttempts(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.sessionService.ListAttempts(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if attempts == nil {
		attempts = []model.ExamAttempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

func (h *StaffHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, repository.ErrModuleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseModuleNotFound)
	case errors.Is(err, repository.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamSessionNotFound)
	case errors.Is(err, service.ErrModuleNotInCourse):
		response.Fail(c, http.StatusBadRequest, response.ErrExamModuleNotInCourse)
	case errors.Is(err, repository.ErrDuplicateSession):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateExamSession)
	default:
		h.log.Error().Err(err).Msg("Staff request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
