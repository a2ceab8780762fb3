package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/middleware"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/repository"
	"github.com/stemsi/exammode/internal/response"
	"github.com/stemsi/exammode/internal/service"
	ws "github.com/stemsi/exammode/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live admission events of a session to course staff.
type MonitorHandler struct {
	rdb            *redis.Client
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorSession godoc
// WS /ws/v1/staff/exam-sessions/:session_id/monitor?token=...
// Sends a snapshot of the session's attempts, then every admission event.
func (h *MonitorHandler) MonitorSession(c *gin.Context) {
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

	reqCtx := c.Request.Context()
	session, err := h.sessionService.Get(reqCtx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("staff_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()
	out := ws.NewWriter(conn)

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	// Subscribe before the snapshot so no event falls between the two.
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ExamSessionMonitorChannel(sessionID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		_ = out.WriteError("monitor unavailable")
		return
	}

	if err := h.sendSnapshot(ctx, out, session); err != nil {
		wsLog.Error().Err(err).Msg("Snapshot failed")
		_ = out.WriteError("snapshot failed")
		return
	}

	go h.readLoop(conn, out, cancel, wsLog)

	wsLog.Info().Msg("Staff attached to admission monitor")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	events := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Staff detached from admission monitor")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			// Forward the published JSON as is.
			if err := out.WriteTyped(ws.AdmissionResponse{Event: ws.EventAdmission, Data: []byte(msg.Payload)}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		case <-keepAlive.C:
			if err := out.Ping(); err != nil {
				return
			}
		}
	}
}

func (h *MonitorHandler) sendSnapshot(ctx context.Context, out *ws.Writer, session *model.ExamSession) error {
	attempts, err := h.sessionService.ListAttempts(ctx, session.ID)
	if err != nil {
		return err
	}
	active := 0
	for i := range attempts {
		if attempts[i].Active() {
			active++
		}
	}
	if attempts == nil {
		attempts = []model.ExamAttempt{}
	}
	return out.WriteTyped(ws.SnapshotResponse{
		Event:       ws.EventSnapshot,
		Session:     session.Summary(),
		Attempts:    attempts,
		ActiveCount: active,
	})
}

// readLoop answers pings and cancels the stream once the client goes away.
func (h *MonitorHandler) readLoop(conn *websocket.Conn, out *ws.Writer, cancel context.CancelFunc, log zerolog.Logger) {
	defer cancel()
	conn.SetPongHandler(func(string) error { return ws.ExtendReadDeadline(conn) })

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = out.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			_ = out.WriteError("unknown action: " + string(msg.Action))
		}
	}
}
