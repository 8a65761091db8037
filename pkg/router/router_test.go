package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-agent-portal/backend/pkg/di"
	"ai-agent-portal/backend/pkg/health"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware([]string{"*"}))
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://portal.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRespectsOriginAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(corsMiddleware([]string{"https://portal.example"}))
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://portal.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://portal.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthReportsDegradedWhenCriticalCheckFails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := health.NewChecker(testLogger(), time.Minute)
	checker.RegisterDatabase(func() error { return assert.AnError })
	checker.RunChecks()

	r := &Router{
		Engine:    gin.New(),
		Container: &di.Container{Health: checker},
		Logger:    testLogger(),
	}
	r.Engine.GET("/api/v1/health", r.healthCheckHandler())

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
	assert.Contains(t, w.Body.String(), "database")
}

func TestHealthReportsOKWhenChecksPass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := health.NewChecker(testLogger(), time.Minute)
	checker.RegisterDatabase(func() error { return nil })
	checker.RunChecks()

	r := &Router{
		Engine:    gin.New(),
		Container: &di.Container{Health: checker},
		Logger:    testLogger(),
	}
	r.Engine.GET("/api/v1/health", r.healthCheckHandler())

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
