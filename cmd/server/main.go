package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-agent-portal/backend/internal/models"
	"ai-agent-portal/backend/pkg/config"
	"ai-agent-portal/backend/pkg/di"
	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/pkg/router"
	"ai-agent-portal/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting agent portal", "env", cfg.Server.Env)

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Client{},
		&models.Agent{},
		&models.Message{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Covering index for the history query
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_client_agent ON messages(client_id, agent_id)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_client_agent")
	}

	container := di.New(db, log)

	seeded, err := container.AdminService.Seed(cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.LogError(err, "Failed to seed admin account")
		os.Exit(1)
	}
	if seeded {
		log.Info("Seeded initial admin account", "username", cfg.Admin.Username)
	}

	if cfg.Metrics.Enabled {
		shutdownTracing := observability.SetupTracing("agent-portal", log)
		defer shutdownTracing()
		observability.SetupPrometheusMetrics(cfg.Metrics.Port, log)
	}

	container.Health.Start()

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
