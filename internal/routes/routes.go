package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/handlers"
	"task-workflow-api/internal/log"
	"task-workflow-api/internal/middleware"
)

// Config holds what the router needs.
type Config struct {
	Handler        *handlers.Handler
	Tokens         *auth.Tokens
	Logger         log.Logger
	AllowedOrigins []string
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

func (c *Config) defaults() error {
	if c.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	if c.Tokens == nil {
		return fmt.Errorf("tokens are required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	return nil
}

// SetupRoutes builds the gin engine with public and protected routes.
func SetupRoutes(cfg Config) (*gin.Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	h := cfg.Handler

	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.CorrelationID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.CORS(cfg.AllowedOrigins),
	)

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Workflow API is running",
		})
	})
	if cfg.Metrics != nil {
		ginRouter.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	api.POST("/login", h.Login)

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(cfg.Tokens))
	{
		protected.GET("/tasks", h.GetTasks)
		protected.POST("/tasks", h.CreateTask)
		protected.GET("/tasks/reminders", h.GetTasksByReminderLevel)
		protected.GET("/tasks/:id", h.GetTaskByID)
		protected.PUT("/tasks/:id", h.UpdateTask)
		protected.GET("/tasks/:id/actions", h.GetTaskActions)
		protected.GET("/tasks/:id/history", h.GetTaskHistory)

		protected.POST("/tasks/:id/assign", h.AssignTask)
		protected.POST("/tasks/:id/reassign", h.ReassignTask)
		protected.POST("/tasks/:id/accept", h.AcceptTask)
		protected.POST("/tasks/:id/reject", h.RejectTask)
		protected.POST("/tasks/:id/request-info", h.RequestMoreInfo)
		protected.POST("/tasks/:id/mark-completed", h.MarkCompleted)
		protected.POST("/tasks/:id/review", h.ReviewTask)
		protected.POST("/tasks/:id/cancel", h.CancelTask)
		protected.POST("/tasks/:id/complete", h.CompleteTask)

		protected.GET("/tasks/:id/progress", h.GetProgressHistory)
		protected.POST("/tasks/:id/progress", h.UpdateProgress)
		protected.POST("/tasks/:id/progress/:entryId/accept", h.AcceptProgress)
		protected.POST("/tasks/:id/progress/:entryId/reject", h.RejectProgress)

		protected.GET("/tasks/:id/extension-requests", h.GetTaskExtensionRequests)
		protected.POST("/tasks/:id/extension-requests", h.RequestExtension)
		protected.POST("/tasks/:id/extension-requests/:requestId/approve", h.ApproveExtension)
		protected.POST("/tasks/:id/extension-requests/:requestId/reject", h.RejectExtension)

		protected.GET("/dashboard", h.GetDashboard)
		protected.GET("/users", h.GetAllUsers)
		protected.GET("/ws", h.WebSocket)
	}

	managers := protected.Group("")
	managers.Use(middleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
	{
		managers.GET("/extension-requests", h.GetPendingExtensionRequests)
		managers.GET("/users/managed", h.GetManagedUsers)
	}

	return ginRouter, nil
}
