package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exammode/internal/config"
	"github.com/stemsi/exammode/internal/handler"
	"github.com/stemsi/exammode/internal/middleware"
	"github.com/stemsi/exammode/internal/model"
	"github.com/stemsi/exammode/internal/response"
	"github.com/stemsi/exammode/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	ExamMode *handler.ExamModeHandler
	Staff    *handler.StaffHandler
	Monitor  *handler.MonitorHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when configured, otherwise allow all.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	api.POST("/auth/login", loginLimiter.Middleware(), handlers.Auth.Login)

	// ─── 1. Authenticated Group ────────────────────────────────────────
	authed := api.Group("")
	authed.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.CacheControl("no-store"),
	)
	{
		authed.GET("/auth/me", handlers.Auth.Me)
		authed.POST("/auth/logout", handlers.Auth.Logout)

		authed.GET("/courses/:course_id/exam-sessions/active", handlers.ExamMode.ActiveSessions)
		authed.POST("/exam-sessions/:session_id/enter", handlers.ExamMode.Enter)
		authed.POST("/exam/leave", handlers.ExamMode.Leave)
		authed.GET("/exam/current", handlers.ExamMode.Current)
	}

	// ─── 2. Staff Group ────────────────────────────────────────────────
	staff := authed.Group("/staff")
	staff.Use(middleware.RequireRole(model.RoleTeacher))
	{
		staff.POST("/courses/:course_id/exam-sessions", handlers.Staff.CreateSession)
		staff.GET("/courses/:course_id/exam-sessions", handlers.Staff.ListSessions)
		staff.GET("/exam-sessions/:session_id/attempts", handlers.Staff.ListAttempts)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	wsStaff := router.Group("/ws/v1/staff")
	wsStaff.Use(
		middleware.RequireWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.RequireRole(model.RoleTeacher),
	)
	{
		wsStaff.GET("/exam-sessions/:session_id/monitor", handlers.Monitor.MonitorSession)
	}

	return router
}
