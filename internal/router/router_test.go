package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/handler"
	"github.com/stemsi/exammode/internal/middleware"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/response"
	"github.com/stemsi/exammode/internal/service"
	"github.com/stemsi/exammode/internal/testutil"
	"github.com/stemsi/exammode/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	courseID     = 10
	examModuleID = 20
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    response.ErrCode  `json:"code"`
		Fields  map[string]string `json:"fields"`
		Details json.RawMessage   `json:"details"`
	} `json:"error"`
}

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	auth     *service.AuthService
	clock    *testutil.Clock
	courses  *testutil.Courses
	content  *testutil.Content
	sessions *testutil.Sessions
	session  model.ExamSession
	healthy  map[string]error
}

// newHarness wires the real router over in-memory stores and miniredis. The
// course has one exam session open from 10:00 to 12:00; the clock reads 11:00.
func newHarness(t *testing.T) *harness {
	t.Helper()
	validator.Setup()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		GinMode:    gin.TestMode,
		JWTSecret:  "router-test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}

	h := &harness{
		t:       t,
		clock:   testutil.NewClock(at(11, 0)),
		courses: testutil.NewCourses(),
		content: testutil.NewContent(),
		healthy: map[string]error{},
	}
	enrollment := testutil.NewEnrollment()
	sessions := testutil.NewSessions()
	h.sessions = sessions
	attempts := testutil.NewAttempts()

	h.courses.PutCourse(model.CourseInstance{
		ID:                 courseID,
		Name:               "Programming 1",
		VisibleToStudents:  true,
		EnrollmentAudience: model.AudienceAllUsers,
	})
	h.courses.PutModule(model.CourseModule{
		ID:               examModuleID,
		CourseInstanceID: courseID,
		Name:             "Final exam",
		Window:           model.TimeWindow{Opening: at(10, 0), Closing: at(12, 0)},
	})
	h.content.Add(model.ContentRef{ID: 1, ModuleID: examModuleID, OrderNum: 1, Slug: "final-exam"})
	h.session = sessions.Put(model.ExamSession{
		Name:             "Final",
		CourseInstanceID: courseID,
		ExamModuleID:     examModuleID,
		Window:           model.TimeWindow{Opening: at(10, 0), Closing: at(12, 0)},
	})

	log := zerolog.Nop()
	h.auth = service.NewAuthService(cfg, rdb, testutil.NewProfiles())
	registry := service.NewExamSessionRegistry(sessions, h.content)
	policy := service.NewEligibilityPolicy(h.courses, enrollment)
	admission := service.NewAdmissionController(registry, policy, enrollment, attempts,
		service.NewRedisEventPublisher(rdb), h.clock, log)
	sessionService := service.NewExamSessionService(sessions, h.courses, attempts)

	checks := map[string]handler.HealthCheck{
		"postgres": func(context.Context) error { return h.healthy["postgres"] },
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := middleware.NewRateLimiter(ctx, 3, time.Minute)

	h.engine = SetupRouter(h.auth, &Handlers{
		Auth:     handler.NewAuthHandler(h.auth, log),
		ExamMode: handler.NewExamModeHandler(admission, log),
		Staff:    handler.NewStaffHandler(sessionService, log),
		Monitor:  handler.NewMonitorHandler(rdb, sessionService, log, nil),
		System:   handler.NewSystemHandler(checks, log),
	}, limiter, cfg)
	return h
}

// login creates an account and returns a token for it.
func (h *harness) login(email string, role model.Role, external bool) string {
	h.t.Helper()
	ctx := context.Background()
	p := &model.UserProfile{Email: email, Name: email, Role: role, IsExternal: external}
	require.NoError(h.t, h.auth.CreateUser(ctx, p, "password123"))
	token, err := h.auth.GenerateToken(ctx, p)
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (h *harness) enterPath() string {
	return "/api/v1/exam-sessions/" + h.session.ID.String() + "/enter"
}

func TestExamModeOverHTTP(t *testing.T) {
	h := newHarness(t)
	token := h.login("ana@example.com", model.RoleStudent, false)

	code, env := h.do(http.MethodGet, "/api/v1/courses/10/exam-sessions/active", token, nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Sessions []model.ExamSessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, h.session.ID, listed.Sessions[0].ID)

	code, env = h.do(http.MethodPost, h.enterPath(), token, model.AttemptMeta{SystemIdentifier: "lab-3"})
	require.Equal(t, http.StatusOK, code)
	var admitted struct {
		Status     service.OutcomeKind `json:"status"`
		ContentURL string              `json:"content_url"`
		Attempt    model.ExamAttempt   `json:"attempt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &admitted))
	assert.Equal(t, service.OutcomeAdmitted, admitted.Status)
	assert.Equal(t, "https://lms.test/modules/20/exam/final-exam/", admitted.ContentURL)
	assert.Equal(t, "lab-3", admitted.Attempt.SystemIdentifier)

	code, env = h.do(http.MethodPost, h.enterPath(), token, nil)
	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrExamAttemptInProgress, env.Error.Code)
	assert.Contains(t, string(env.Error.Details), admitted.Attempt.ID.String())

	code, env = h.do(http.MethodGet, "/api/v1/exam/current", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), admitted.ContentURL)

	h.clock.Set(at(11, 30))
	code, env = h.do(http.MethodPost, "/api/v1/exam/leave", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), string(service.OutcomeCompleted))

	code, env = h.do(http.MethodPost, "/api/v1/exam/leave", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), string(service.OutcomeNothingToClose))

	code, env = h.do(http.MethodGet, "/api/v1/exam/current", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"active_exam":null}`, string(env.Data))
}

func TestEnterErrorMapping(t *testing.T) {
	h := newHarness(t)
	token := h.login("ben@example.com", model.RoleStudent, false)

	code, env := h.do(http.MethodPost, "/api/v1/exam-sessions/not-a-uuid/enter", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)

	code, env = h.do(http.MethodPost, "/api/v1/exam-sessions/7f1a2b3c-0000-4000-8000-000000000000/enter", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, response.ErrExamSessionNotFound, env.Error.Code)

	code, env = h.do(http.MethodPost, h.enterPath(), token, map[string]string{"exam_version": strings.Repeat("v", 300)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "exam_version")

	h.clock.Set(at(12, 1))
	code, env = h.do(http.MethodPost, h.enterPath(), token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, response.ErrExamEntryRejected, env.Error.Code)
}

func TestEnterWithoutContentOrEligibility(t *testing.T) {
	h := newHarness(t)
	token := h.login("cy@example.com", model.RoleStudent, false)

	bare := h.sessions.Put(model.ExamSession{
		Name:             "Unprepared",
		CourseInstanceID: courseID,
		ExamModuleID:     99,
		Window:           model.TimeWindow{Opening: at(10, 0), Closing: at(12, 0)},
	})
	code, env := h.do(http.MethodPost, "/api/v1/exam-sessions/"+bare.ID.String()+"/enter", token, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrExamContentNotConfigured, env.Error.Code)

	h.courses.PutCourse(model.CourseInstance{ID: courseID, VisibleToStudents: false})
	code, env = h.do(http.MethodPost, h.enterPath(), token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, response.ErrExamEntryRejected, env.Error.Code)
}

func TestAuthGuards(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/api/v1/exam/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.ErrTokenRequired, env.Error.Code)

	code, env = h.do(http.MethodGet, "/api/v1/exam/current", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.ErrTokenInvalid, env.Error.Code)

	student := h.login("eve@example.com", model.RoleStudent, false)
	code, env = h.do(http.MethodGet, "/api/v1/staff/courses/10/exam-sessions", student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, response.ErrTeacherAccessOnly, env.Error.Code)

	code, _ = h.do(http.MethodPost, "/api/v1/auth/logout", student, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = h.do(http.MethodGet, "/api/v1/auth/me", student, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.ErrSessionInvalidated, env.Error.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t)
	h.login("fay@example.com", model.RoleStudent, false)

	creds := model.LoginRequest{Email: "fay@example.com", Password: "password123"}
	code, env := h.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, code)
	var res model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotEmpty(t, res.Token)

	code, env = h.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Email: "fay@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, response.ErrInvalidCredentials, env.Error.Code)

	code, _ = h.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)
}

func TestStaffSessionManagement(t *testing.T) {
	h := newHarness(t)
	teacher := h.login("tom@example.com", model.RoleTeacher, false)
	path := "/api/v1/staff/courses/10/exam-sessions"

	room := " B-204 "
	code, env := h.do(http.MethodPost, path, teacher, model.CreateExamSessionRequest{
		Name: "Retake", Room: &room, ExamModuleID: examModuleID,
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		Session model.ExamSession `json:"session"`
		Label   string            `json:"label"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Retake B-204", created.Label)
	assert.True(t, created.Session.Window.Opening.Equal(at(10, 0)))

	code, env = h.do(http.MethodPost, path, teacher, model.CreateExamSessionRequest{
		Name: "Retake", Room: &room, ExamModuleID: examModuleID,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.ErrDuplicateExamSession, env.Error.Code)

	code, env = h.do(http.MethodPost, path, teacher, model.CreateExamSessionRequest{Name: "   ", ExamModuleID: examModuleID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name must not be blank", env.Error.Fields["name"])

	h.courses.PutModule(model.CourseModule{ID: 30, CourseInstanceID: 11})
	code, env = h.do(http.MethodPost, path, teacher, model.CreateExamSessionRequest{Name: "Other", ExamModuleID: 30})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrExamModuleNotInCourse, env.Error.Code)

	code, env = h.do(http.MethodGet, path, teacher, nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Sessions []model.ExamSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	assert.Len(t, listed.Sessions, 2)

	code, env = h.do(http.MethodGet, "/api/v1/staff/exam-sessions/"+h.session.ID.String()+"/attempts", teacher, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"attempts":[]}`, string(env.Data))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"postgres":"up","redis":"up"}}`, string(env.Data))

	h.healthy["postgres"] = errors.New("connection refused")
	code, env = h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"degraded","dependencies":{"postgres":"down","redis":"up"}}`, string(env.Data))
}

func TestMonitorStreamsAdmissions(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.engine)
	t.Cleanup(srv.Close)

	teacher := h.login("tess@example.com", model.RoleTeacher, false)
	student := h.login("gus@example.com", model.RoleStudent, false)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/v1/staff/exam-sessions/" + h.session.ID.String() + "/monitor?token=" + teacher
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot struct {
		Event       string                   `json:"event"`
		Session     model.ExamSessionSummary `json:"session"`
		ActiveCount int                      `json:"active_count"`
	}
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, "snapshot", snapshot.Event)
	assert.Equal(t, h.session.ID, snapshot.Session.ID)
	assert.Zero(t, snapshot.ActiveCount)

	code, _ := h.do(http.MethodPost, h.enterPath(), student, nil)
	require.Equal(t, http.StatusOK, code)

	var msg struct {
		Event string               `json:"event"`
		Data  model.AdmissionEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "admission", msg.Event)
	assert.Equal(t, model.EventAttemptOpened, msg.Data.Type)
	assert.Equal(t, h.session.ID, msg.Data.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	var pong struct {
		Event string `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Event)
}

func TestMonitorRejectsStudentsAndUnknownSessions(t *testing.T) {
	h := newHarness(t)
	student := h.login("hal@example.com", model.RoleStudent, false)
	teacher := h.login("ivy@example.com", model.RoleTeacher, false)

	path := "/ws/v1/staff/exam-sessions/" + h.session.ID.String() + "/monitor?token=" + student
	code, env := h.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, response.ErrTeacherAccessOnly, env.Error.Code)

	path = "/ws/v1/staff/exam-sessions/7f1a2b3c-0000-4000-8000-000000000000/monitor?token=" + teacher
	code, env = h.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, response.ErrExamSessionNotFound, env.Error.Code)
}
