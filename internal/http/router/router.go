package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers"
	"github.com/ignatzorin/marketplace-backend/internal/http/middleware"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	milestoneHandler *handlers.MilestoneHandler,
	paymentHandler *handlers.PaymentHandler,
	projectHandler *handlers.ProjectHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// WebSocket авторизуется по токену в query, без middleware
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Смена статусов ограничена по частоте: защита от дублирующих кликов
		statusRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

		protected.GET("/milestones/project/:id", middleware.UUIDValidator("id"), milestoneHandler.ListByProject)
		protected.PUT("/milestones/:id/status", middleware.UUIDValidator("id"), statusRateLimit, milestoneHandler.UpdateStatus)
		protected.POST("/milestones/:id/submit", middleware.UUIDValidator("id"), milestoneHandler.Submit)
		protected.POST("/milestones/:id/fund", middleware.UUIDValidator("id"), milestoneHandler.Fund)
		protected.GET("/milestones/:id/escrow", middleware.UUIDValidator("id"), milestoneHandler.Escrow)

		protected.POST("/payments", paymentHandler.Create)
		protected.GET("/payments/milestone/:id", middleware.UUIDValidator("id"), paymentHandler.ListByMilestone)
		protected.GET("/payments/user", paymentHandler.ListUserPayments)
		protected.GET("/payments/transactions", paymentHandler.Transactions)

		protected.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Get)
		protected.GET("/projects/:id/can-complete", middleware.UUIDValidator("id"), projectHandler.CanComplete)
		protected.PUT("/projects/:id/status", middleware.UUIDValidator("id"), statusRateLimit, projectHandler.UpdateStatus)
		protected.POST("/projects/:id/milestones/plan", middleware.UUIDValidator("id"), milestoneHandler.ApprovePlan)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PATCH("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)
	}

	return r
}
