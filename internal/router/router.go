package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Config   *handler.ConfigHandler
	Portal   *handler.PortalHandler
	WS       *handler.WSHandler
	Roster   *handler.RosterHandler
	Result   *handler.ResultHandler
	Question *handler.QuestionHandler
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
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.GinMode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(60))
	{
		publicAPI.GET("/exam-config", handlers.Config.GetExamConfig)
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/admin/login", loginLimiter.Middleware(), handlers.Auth.AdminLogin)

		adminAuth := auth.Group("/admin")
		adminAuth.Use(middleware.RequireAdminJWT(authService), middleware.CheckAdminSession(authService))
		adminAuth.POST("/logout", handlers.Auth.AdminLogout)
		adminAuth.GET("/me", handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Portal Group (Portal Token) ────────────────────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(middleware.NoStore())
	{
		portalAPI.POST("/sessions", handlers.Portal.CreateSession)

		sess := portalAPI.Group("/session")
		sess.Use(middleware.RequirePortalToken(authService))
		sess.GET("", handlers.Portal.GetSession)
		sess.DELETE("", handlers.Portal.CloseSession)
		sess.POST("/register", handlers.Portal.Register)
		sess.POST("/start", handlers.Portal.Start)
		sess.PUT("/answers/:index", handlers.Portal.SelectOption)
		sess.POST("/navigate", handlers.Portal.Navigate)
		sess.POST("/submit", handlers.Portal.Submit)
		sess.POST("/reset", handlers.Portal.Reset)
	}

	// ─── 3. WebSocket Group (Portal Token via ?token=) ─────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequirePortalToken(authService))
	{
		ws.GET("/portal/stream", handlers.WS.PortalStream)
	}

	// ─── 4. Admin Group (JWT + Single Session) ─────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.NoStore(),
		middleware.RequireAdminJWT(authService),
		middleware.CheckAdminSession(authService),
	)
	{
		adminAPI.GET("/students", handlers.Roster.ListStudents)

		adminAPI.GET("/results", handlers.Result.ListResults)
		adminAPI.GET("/results/export", handlers.Result.ExportResults)
		adminAPI.GET("/results/print", handlers.Result.PrintResults)

		adminAPI.GET("/questions", handlers.Question.ListAll)
		adminAPI.GET("/questions/:class", handlers.Question.ListClass)
		adminAPI.POST("/questions/:class", handlers.Question.AddQuestion)
		adminAPI.PUT("/questions/:class/:id", handlers.Question.UpdateQuestion)
		adminAPI.DELETE("/questions/:class/:id", handlers.Question.DeleteQuestion)
		adminAPI.POST("/questions/:class/generate", handlers.Question.GenerateQuestions)
		adminAPI.GET("/generation-jobs/:id", handlers.Question.GetGenerationJob)

		adminAPI.GET("/monitor/sessions", handlers.Monitor.ListSessions)
		adminAPI.GET("/monitor/stream", handlers.Monitor.StreamSessions)

		adminAPI.GET("/system/metrics", handlers.System.GetSystemMetrics)
		adminAPI.GET("/system/metrics/stream", handlers.System.SystemMetricsSSE)
	}

	return router
}
