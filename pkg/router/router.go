package router

import (
	"net/http"
	"time"

	"ai-agent-portal/backend/internal/api"
	"ai-agent-portal/backend/internal/ws"
	"ai-agent-portal/backend/pkg/config"
	"ai-agent-portal/backend/pkg/di"
	"ai-agent-portal/backend/pkg/errors"
	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime reporting
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first so every request gets a request-scoped logger
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.ClientService, r.Container.AdminService, r.Logger)
	clientHandler := api.NewClientHandler(r.Container.ClientService, r.Logger)
	agentHandler := api.NewAgentHandler(r.Container.AgentService, r.Logger)
	chatHandler := api.NewChatHandler(
		r.Container.RelayService,
		r.Container.MessageService,
		r.Container.AgentService,
		r.Logger,
	)

	v1 := r.Engine.Group("/api/v1")

	// Public routes
	v1.GET("/health", r.healthCheckHandler())

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/admin/login", authHandler.AdminLogin)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Admin routes: client account provisioning
	adminRoutes := v1.Group("/clients")
	adminRoutes.Use(jwtAuth, middleware.RequireRole(jwt.RoleAdmin))
	{
		adminRoutes.GET("", clientHandler.ListClients)
		adminRoutes.POST("", clientHandler.CreateClient)
		adminRoutes.PUT("/:id/webhook", clientHandler.SetWebhook)
		adminRoutes.DELETE("/:id", clientHandler.DeleteClient)
	}

	// Client routes: agent management
	agentRoutes := v1.Group("/agents")
	agentRoutes.Use(jwtAuth, middleware.RequireRole(jwt.RoleClient))
	{
		agentRoutes.GET("", agentHandler.ListAgents)
		agentRoutes.POST("", agentHandler.CreateAgent)
		agentRoutes.PUT("/:id", agentHandler.UpdateAgent)
		agentRoutes.DELETE("/:id", agentHandler.DeleteAgent)
	}

	// Client routes: message relay
	chatRoutes := v1.Group("/chat")
	chatRoutes.Use(jwtAuth, middleware.RequireRole(jwt.RoleClient))
	{
		chatRoutes.POST("/:agentId", chatHandler.Submit)
		chatRoutes.GET("/:agentId/history", chatHandler.History)
	}

	// WebSocket route authenticates through its own join event
	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Container.Hub, c)
	})
}

// healthCheckHandler reports liveness plus the state of backing services
func (r *Router) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		overall := "ok"
		if !r.Container.Health.Healthy() {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status":     overall,
			"uptime":     time.Since(startTime).String(),
			"time":       time.Now().Format(time.RFC3339),
			"components": r.Container.Health.GetStatus(),
		})
	}
}

// corsMiddleware allows browser portals on the configured origins, including
// the headers a websocket upgrade negotiation sends.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
