package di

import (
	"context"
	"time"

	"ai-agent-portal/backend/internal/service"
	"ai-agent-portal/backend/internal/ws"
	"ai-agent-portal/backend/pkg/cache"
	"ai-agent-portal/backend/pkg/config"
	"ai-agent-portal/backend/pkg/health"
	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/shared/redis"
	"ai-agent-portal/backend/webhook"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	Redis          *redis.Client // nil when Redis is disabled
	Cache          *cache.Cache  // nil when the in-memory cache is disabled
	ClientService  *service.ClientService
	AdminService   *service.AdminService
	AgentService   *service.AgentService
	MessageService *service.MessageService
	RelayService   *service.RelayService
	Forwarder      *webhook.Forwarder
	Hub            *ws.Hub
	Health         *health.Checker
}

// New wires the application dependency graph from the given database handle
func New(db *gorm.DB, log *logger.Logger) *Container {
	cfg := config.Get()

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx); err != nil {
			log.Warn("Redis unreachable, history caching disabled", "error", err.Error())
			redisClient = nil
		}
		cancel()
	}

	var agentCache *cache.Cache
	if cfg.Cache.Enabled {
		agentCache = cache.NewCache()
	}

	clientService := service.NewClientService(db, jwtService)
	adminService := service.NewAdminService(db, jwtService)
	agentService := service.NewAgentService(db, agentCache)
	messageService := service.NewMessageService(db, redisClient, log)

	forwarder := webhook.NewForwarder(cfg.Webhook.Timeout, log)

	hub := ws.NewHub(jwtService, log)

	relayService := service.NewRelayService(
		agentService,
		messageService,
		forwarder,
		hub,
		log,
		cfg.Relay.MaxMessageLength,
	)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabase(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})
	if redisClient != nil {
		checker.RegisterRedis(redisClient)
	}

	return &Container{
		DB:             db,
		Logger:         log,
		JWTService:     jwtService,
		Redis:          redisClient,
		Cache:          agentCache,
		ClientService:  clientService,
		AdminService:   adminService,
		AgentService:   agentService,
		MessageService: messageService,
		RelayService:   relayService,
		Forwarder:      forwarder,
		Hub:            hub,
		Health:         checker,
	}
}
